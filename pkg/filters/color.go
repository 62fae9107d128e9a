package filters

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ColorControls adjusts brightness, contrast and saturation.
//
// Brightness is added to every channel (-1..1). Contrast scales distance
// from mid gray. Saturation scales distance from the pixel's luma.
type ColorControls struct {
	Brightness float64
	Contrast   float64
	Saturation float64
}

// NewColorControls returns the neutral adjustment.
func NewColorControls() *ColorControls {
	return &ColorControls{Contrast: 1, Saturation: 1}
}

func (c *ColorControls) Kind() Kind { return KindColorControls }

// IsIdentity reports whether Apply would return its input unchanged.
func (c *ColorControls) IsIdentity() bool {
	return c.Brightness == 0 && c.Contrast == 1 && c.Saturation == 1
}

func (c *ColorControls) Apply(img image.Image) image.Image {
	if IsEmpty(img) || c.IsIdentity() {
		return img
	}

	var lut [256]float64
	for i := range lut {
		v := float64(i)/255 + c.Brightness
		lut[i] = (v-0.5)*c.Contrast + 0.5
	}

	sat := c.Saturation
	return imaging.AdjustFunc(img, func(px color.NRGBA) color.NRGBA {
		r, g, b := lut[px.R], lut[px.G], lut[px.B]
		l := luma(r, g, b)
		return color.NRGBA{
			R: to8(l + (r-l)*sat),
			G: to8(l + (g-l)*sat),
			B: to8(l + (b-l)*sat),
			A: px.A,
		}
	})
}

func (c *ColorControls) Clone() Stage {
	cp := *c
	return &cp
}
