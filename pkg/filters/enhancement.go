package filters

import (
	"image"
	"image/color"
	"reflect"
	"sync"

	"github.com/disintegration/imaging"
)

// Histogram percentiles treated as black and white points.
const (
	enhanceLowPercentile  = 0.005
	enhanceHighPercentile = 0.995
)

// Enhancement is the automatic adjustment stage. Its analysis is expensive,
// so the result for the last input image is memoized until Reset or an
// enable toggle. The memo is keyed on the identity and bounds of the input;
// a caller that rewrites pixels in place must Reset.
type Enhancement struct {
	mu       sync.Mutex
	enabled  bool
	source   image.Image
	cached   image.Image
	analyses int
}

// NewEnhancement returns a disabled enhancement stage.
func NewEnhancement() *Enhancement {
	return &Enhancement{}
}

func (e *Enhancement) Kind() Kind { return KindEnhancement }

// Enabled reports whether the stage is active.
func (e *Enhancement) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// SetEnabled toggles the stage. Changing the value invalidates the cache.
func (e *Enhancement) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabled == enabled {
		return
	}
	e.enabled = enabled
	e.resetLocked()
}

// Reset drops the memoized result.
func (e *Enhancement) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// Cached reports whether a memoized result is held.
func (e *Enhancement) Cached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cached != nil
}

// Analyses returns how many times the histogram analysis has run on this
// stage value.
func (e *Enhancement) Analyses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyses
}

func (e *Enhancement) resetLocked() {
	e.source = nil
	e.cached = nil
}

// Apply returns the enhanced image. Repeated calls with the same image
// return the same result value; a different image is analysed afresh and
// replaces the memo.
func (e *Enhancement) Apply(img image.Image) image.Image {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled || IsEmpty(img) {
		return img
	}
	if e.cached != nil && sameImage(e.source, img) {
		return e.cached
	}

	e.analyses++
	e.source = img
	e.cached = autoAdjust(img)
	return e.cached
}

func (e *Enhancement) Clone() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Memoized images are never written after creation and are shared.
	return &Enhancement{
		enabled: e.enabled,
		source:  e.source,
		cached:  e.cached,
	}
}

// sameImage reports whether a and b are the same pointer-backed image with
// the same bounds. Non-pointer image values never match.
func sameImage(a, b image.Image) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || va.Kind() != reflect.Pointer {
		return false
	}
	return va.Pointer() == vb.Pointer() && a.Bounds() == b.Bounds()
}

// autoAdjust stretches levels between the low and high luminance
// percentiles and gives a slight saturation lift.
func autoAdjust(img image.Image) image.Image {
	hist := imaging.Histogram(img)

	low, high := 0, 255
	var acc float64
	for i, v := range hist {
		acc += v
		if acc >= enhanceLowPercentile {
			low = i
			break
		}
	}
	acc = 0
	for i := 255; i >= 0; i-- {
		acc += hist[i]
		if acc >= 1-enhanceHighPercentile {
			high = i
			break
		}
	}
	if high <= low {
		return imaging.Clone(img)
	}

	scale := 255.0 / float64(high-low)
	lut := make([]uint8, 256)
	for i := range lut {
		lut[i] = to8(float64(i-low) * scale / 255)
	}

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r, g, b := float64(lut[c.R])/255, float64(lut[c.G])/255, float64(lut[c.B])/255
		l := luma(r, g, b)
		const vibrance = 1.1
		return color.NRGBA{
			R: to8(l + (r-l)*vibrance),
			G: to8(l + (g-l)*vibrance),
			B: to8(l + (b-l)*vibrance),
			A: c.A,
		}
	})
}

func luma(r, g, b float64) float64 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}
