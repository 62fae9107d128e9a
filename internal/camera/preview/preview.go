// Package preview keeps the latest processed frame in an in-memory
// framebuffer sized like the display it stands in for.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// TransitionDuration is the cross-fade length after BeginTransition.
const TransitionDuration = 300 * time.Millisecond

// ContentMode selects how frames are scaled into the surface.
type ContentMode int

const (
	// ContentFit letterboxes the whole frame inside the surface.
	ContentFit ContentMode = iota
	// ContentFill covers the surface and crops the overflow.
	ContentFill
)

func (m ContentMode) String() string {
	if m == ContentFill {
		return "fill"
	}
	return "fit"
}

func ParseContentMode(s string) (ContentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fit":
		return ContentFit, nil
	case "fill":
		return ContentFill, nil
	}
	return ContentFit, fmt.Errorf("unknown content mode %q", s)
}

// AspectFit returns the largest rect with src's aspect ratio centered
// inside dst.
func AspectFit(src, dst image.Rectangle) image.Rectangle {
	return aspect(src, dst, false)
}

// AspectFill returns the smallest rect with src's aspect ratio centered on
// dst that covers it.
func AspectFill(src, dst image.Rectangle) image.Rectangle {
	return aspect(src, dst, true)
}

func aspect(src, dst image.Rectangle, fill bool) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return image.Rectangle{}
	}

	// Compare sw/sh with dw/dh without floating point.
	wider := sw*dh > dw*sh
	var w, h int
	if wider != fill {
		w = dw
		h = (sh*dw + sw/2) / sw
	} else {
		h = dh
		w = (sw*dh + sh/2) / sh
	}

	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// Surface is a framebuffer that frames are drawn into.
type Surface struct {
	mu     sync.Mutex
	mode   ContentMode
	buf    *image.RGBA
	frames uint64
	now    func() time.Time

	fadeFrom  *image.RGBA
	fadeStart time.Time
}

// NewSurface returns a black surface of w x h.
func NewSurface(w, h int, mode ContentMode) *Surface {
	s := &Surface{
		mode: mode,
		buf:  image.NewRGBA(image.Rect(0, 0, w, h)),
		now:  time.Now,
	}
	fillBlack(s.buf)
	return s
}

// Bounds returns the surface rectangle.
func (s *Surface) Bounds() image.Rectangle { return s.buf.Rect }

func (s *Surface) Mode() ContentMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Surface) SetMode(m ContentMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Frames returns the number of frames drawn.
func (s *Surface) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Draw scales img into the surface. During a transition the previous
// snapshot is blended on top with decreasing opacity.
func (s *Surface) Draw(img image.Image) {
	if img == nil || img.Bounds().Empty() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dst := s.buf.Rect
	var r image.Rectangle
	if s.mode == ContentFill {
		r = AspectFill(img.Bounds(), dst)
	} else {
		r = AspectFit(img.Bounds(), dst)
	}

	fillBlack(s.buf)
	draw.ApproxBiLinear.Scale(s.buf, r, img, img.Bounds(), draw.Src, nil)

	if s.fadeFrom != nil {
		elapsed := s.now().Sub(s.fadeStart)
		if elapsed >= TransitionDuration {
			s.fadeFrom = nil
		} else {
			alpha := uint8(255 * (1 - float64(elapsed)/float64(TransitionDuration)))
			mask := image.NewUniform(color.Alpha{A: alpha})
			draw.DrawMask(s.buf, dst, s.fadeFrom, image.Point{}, mask, image.Point{}, draw.Over)
		}
	}
	s.frames++
}

// BeginTransition freezes the current picture and fades it out over the
// next TransitionDuration of frames.
func (s *Surface) BeginTransition() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fadeFrom = copyRGBA(s.buf)
	s.fadeStart = s.now()
}

// Transitioning reports whether a cross-fade is in progress.
func (s *Surface) Transitioning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fadeFrom != nil && s.now().Sub(s.fadeStart) < TransitionDuration
}

// Snapshot returns a copy of the current picture.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRGBA(s.buf)
}

// JPEG encodes the current picture.
func (s *Surface) JPEG(w io.Writer, quality int) error {
	return imaging.Encode(w, s.Snapshot(), imaging.JPEG, imaging.JPEGQuality(quality))
}

func copyRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

func fillBlack(img *image.RGBA) {
	draw.Draw(img, img.Rect, image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)
}
