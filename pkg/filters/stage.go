// Package filters implements the image transforms that make up an edit and
// the fixed-order Chain that runs them.
package filters

import (
	"image"

	"github.com/disintegration/imaging"
)

// Kind identifies a stage type. Kinds double as the "type" field of a Spec.
type Kind string

const (
	KindEnhancement     Kind = "enhancement"
	KindOrientationCrop Kind = "orientation_crop"
	KindTiltShift       Kind = "tiltshift"
	KindResponse        Kind = "response"
	KindColorControls   Kind = "color_controls"
	KindText            Kind = "text"
	KindSticker         Kind = "sticker"
	KindScale           Kind = "scale"
)

// Stage is a single parameterized image transform.
//
// Apply never mutates its input. A stage without meaningful parameters
// returns its input unchanged. A stage may return an image with an empty
// extent; callers treat that as "nothing to show", not as an error.
type Stage interface {
	Kind() Kind
	Apply(img image.Image) image.Image
	// Clone returns a fully independent copy, overlay payloads included.
	Clone() Stage
}

// Point is a position in unit coordinates, origin top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsEmpty reports whether img is nil or has no area.
func IsEmpty(img image.Image) bool {
	return img == nil || img.Bounds().Empty()
}

func emptyImage() image.Image {
	return image.NewNRGBA(image.Rectangle{})
}

// toNRGBA returns img as an NRGBA anchored at the origin. The result is a
// copy unless img already satisfies both.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
