package filters

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Scale resamples by Factor with a Lanczos kernel.
type Scale struct {
	Factor float64
}

func NewScale(factor float64) *Scale {
	return &Scale{Factor: factor}
}

func (s *Scale) Kind() Kind { return KindScale }

func (s *Scale) Apply(img image.Image) image.Image {
	if IsEmpty(img) || s.Factor <= 0 || s.Factor == 1 {
		return img
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * s.Factor))
	h := int(math.Round(float64(b.Dy()) * s.Factor))
	if w < 1 || h < 1 {
		return emptyImage()
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func (s *Scale) Clone() Stage {
	cp := *s
	return &cp
}
