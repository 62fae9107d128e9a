package crops

import (
	"image"
	"math"
	"strconv"
	"strings"
)

// Crop represents a crop region in unit coordinates (0.0-1.0) relative to
// the image extent. The origin is the top-left corner.
type Crop struct {
	// AspectRatio is "w:h" when the crop was derived from a ratio.
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// Full returns the crop covering the whole image.
func Full() Crop {
	return Crop{Width: 1, Height: 1}
}

// IsFull reports whether c covers the whole image.
func (c Crop) IsFull() bool {
	return c.X <= 0 && c.Y <= 0 && c.X+c.Width >= 1 && c.Y+c.Height >= 1
}

// IsEmpty reports whether c has no area.
func (c Crop) IsEmpty() bool {
	return c.Width <= 0 || c.Height <= 0
}

// Clamp clips c to the unit square.
func (c Crop) Clamp() Crop {
	x0 := clamp01(c.X)
	y0 := clamp01(c.Y)
	x1 := clamp01(c.X + c.Width)
	y1 := clamp01(c.Y + c.Height)
	c.X, c.Y = x0, y0
	c.Width = math.Max(0, x1-x0)
	c.Height = math.Max(0, y1-y0)
	return c
}

// ToPixels maps c onto bounds, rounding to whole pixels. The result always
// lies inside bounds and may be empty.
func (c Crop) ToPixels(bounds image.Rectangle) image.Rectangle {
	c = c.Clamp()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	r := image.Rect(
		bounds.Min.X+int(math.Round(c.X*w)),
		bounds.Min.Y+int(math.Round(c.Y*h)),
		bounds.Min.X+int(math.Round((c.X+c.Width)*w)),
		bounds.Min.Y+int(math.Round((c.Y+c.Height)*h)),
	)
	return r.Intersect(bounds)
}

// FromPixels is the inverse of ToPixels.
func FromPixels(bounds image.Rectangle, r image.Rectangle) Crop {
	if bounds.Empty() {
		return Crop{}
	}
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	r = r.Intersect(bounds)
	return Crop{
		X:      float64(r.Min.X-bounds.Min.X) / w,
		Y:      float64(r.Min.Y-bounds.Min.Y) / h,
		Width:  float64(r.Dx()) / w,
		Height: float64(r.Dy()) / h,
	}
}

// ParseAspectRatio parses "w:h" (e.g. "16:9" or "2.39:1").
func ParseAspectRatio(aspectRatio string) (w, h float64, ok bool) {
	parts := strings.Split(aspectRatio, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// ForAspectRatio returns the largest centered crop of a width x height
// image with the given "w:h" ratio. Unparseable ratios yield the full frame.
func ForAspectRatio(width, height int, ratio string) Crop {
	rw, rh, ok := ParseAspectRatio(ratio)
	if !ok || width <= 0 || height <= 0 {
		return Full()
	}

	target := rw / rh
	actual := float64(width) / float64(height)

	c := Crop{AspectRatio: ratio, Width: 1, Height: 1}
	if actual > target {
		c.Width = target / actual
		c.X = (1 - c.Width) / 2
	} else {
		c.Height = actual / target
		c.Y = (1 - c.Height) / 2
	}
	return c
}

// Square returns the centered square crop for a width x height image.
// The short side is kept whole; the long side is scaled by short/long and
// offset by (1-scale)/2.
func Square(width, height int) Crop {
	if width <= 0 || height <= 0 {
		return Crop{}
	}
	c := Crop{AspectRatio: "1:1", Width: 1, Height: 1}
	if width >= height {
		scale := float64(height) / float64(width)
		c.X = (1 - scale) / 2
		c.Width = scale
	} else {
		scale := float64(width) / float64(height)
		c.Y = (1 - scale) / 2
		c.Height = scale
	}
	return c
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
