package filters

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Response applies a named look. When a LUT is attached it replaces the
// look's built-in curves, with or without a look selected.
type Response struct {
	Look Look
	LUT  *LUT
}

// NewResponse returns a response stage with no look selected.
func NewResponse() *Response {
	return &Response{Look: LookNone}
}

func (r *Response) Kind() Kind { return KindResponse }

func (r *Response) Apply(img image.Image) image.Image {
	if r.IsIdentity() || IsEmpty(img) {
		return img
	}

	if r.LUT != nil {
		return imaging.AdjustFunc(img, r.LUT.lookup)
	}

	p := r.Look.Params()
	curves := buildCurves(p)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		rv := float64(curves[0][c.R]) / 255
		gv := float64(curves[1][c.G]) / 255
		bv := float64(curves[2][c.B]) / 255

		l := luma(rv, gv, bv)
		if p.Mono {
			rv, gv, bv = l*p.Tint[0], l*p.Tint[1], l*p.Tint[2]
		} else if p.Saturation != 1 {
			rv = l + (rv-l)*p.Saturation
			gv = l + (gv-l)*p.Saturation
			bv = l + (bv-l)*p.Saturation
		}
		return color.NRGBA{R: to8(rv), G: to8(gv), B: to8(bv), A: c.A}
	})
}

// IsIdentity reports whether neither a look nor a LUT is set.
func (r *Response) IsIdentity() bool {
	return r.Look == LookNone && r.LUT == nil
}

// buildCurves precomputes the per-channel tone curves of p.
func buildCurves(p LookParams) [3][256]uint8 {
	var curves [3][256]uint8
	contrast := p.Contrast
	if contrast == 0 {
		contrast = 1
	}
	for ch := 0; ch < 3; ch++ {
		gain := p.Gain[ch]
		if gain == 0 {
			gain = 1
		}
		gamma := p.Gamma[ch]
		if gamma <= 0 {
			gamma = 1
		}
		for i := 0; i < 256; i++ {
			v := float64(i) / 255
			v = p.Lift[ch] + (gain-p.Lift[ch])*v
			v = math.Pow(clamp01(v), 1/gamma)
			v = (v-0.5)*contrast + 0.5
			curves[ch][i] = to8(v)
		}
	}
	return curves
}

func (r *Response) Clone() Stage {
	// LUT tables are never mutated after decoding and are shared.
	cp := *r
	return &cp
}
