package filters

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultBlurRadius is the tilt-shift blur radius in pixels.
const DefaultBlurRadius = 4.0

const (
	// Fraction of the inner radius over which the circle mask fades.
	circleFade = 0.4
	// How far past each control point the box mask fades, as a fraction
	// of the control point distance.
	boxFade = 0.3
)

// TiltShiftMode selects the shape of the in-focus region.
type TiltShiftMode int

const (
	TiltShiftOff TiltShiftMode = iota
	TiltShiftBox
	TiltShiftCircle
)

func (m TiltShiftMode) String() string {
	switch m {
	case TiltShiftBox:
		return "box"
	case TiltShiftCircle:
		return "circle"
	default:
		return "off"
	}
}

// ParseTiltShiftMode parses "off", "box" or "circle".
func ParseTiltShiftMode(s string) (TiltShiftMode, error) {
	switch s {
	case "", "off":
		return TiltShiftOff, nil
	case "box":
		return TiltShiftBox, nil
	case "circle":
		return TiltShiftCircle, nil
	}
	return TiltShiftOff, fmt.Errorf("unknown tiltshift mode %q", s)
}

// TiltShift blurs everything outside a band (box) or disc (circle) defined
// by two control points. For a circle the points lie on opposite sides of
// the diameter; for a box they lie on opposite edges.
type TiltShift struct {
	Mode       TiltShiftMode
	Point1     Point
	Point2     Point
	BlurRadius float64
}

// NewTiltShift returns a disabled tilt-shift stage.
func NewTiltShift() *TiltShift {
	return &TiltShift{
		Point1:     Point{X: 0.5, Y: 0.4},
		Point2:     Point{X: 0.5, Y: 0.6},
		BlurRadius: DefaultBlurRadius,
	}
}

func (t *TiltShift) Kind() Kind { return KindTiltShift }

func (t *TiltShift) Apply(img image.Image) image.Image {
	if t.Mode == TiltShiftOff || IsEmpty(img) {
		return img
	}

	sharp := toNRGBA(img)
	w, h := sharp.Rect.Dx(), sharp.Rect.Dy()

	radius := t.BlurRadius
	if radius <= 0 {
		radius = DefaultBlurRadius
	}
	blurred := imaging.Blur(sharp, radius)

	mask := t.maskFunc(w, h)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * sharp.Stride
		for x := 0; x < w; x++ {
			m := mask(float64(x)+0.5, float64(y)+0.5)
			i := row + x*4
			for c := 0; c < 4; c++ {
				s := float64(sharp.Pix[i+c])
				b := float64(blurred.Pix[i+c])
				out.Pix[i+c] = uint8(b*m + s*(1-m) + 0.5)
			}
		}
	}
	return out
}

// maskFunc returns the blur weight at a pixel center: 0 is fully sharp,
// 1 is fully blurred.
func (t *TiltShift) maskFunc(w, h int) func(x, y float64) float64 {
	fw, fh := float64(w), float64(h)

	if t.Mode == TiltShiftCircle {
		sx, sy := 1.0, fh/fw
		if fh > fw {
			sx, sy = fw/fh, 1.0
		}
		center := Point{X: (t.Point1.X + t.Point2.X) / 2, Y: (t.Point1.Y + t.Point2.Y) / 2}
		radius := math.Hypot((center.X-t.Point1.X)*sx, (center.Y-t.Point1.Y)*sy)

		inner := math.Max(fw, fh) * radius
		outer := inner * (1 + circleFade)
		cx, cy := center.X*fw, center.Y*fh
		return func(x, y float64) float64 {
			d := math.Hypot(x-cx, y-cy)
			switch {
			case d <= inner:
				return 0
			case d >= outer:
				return 1
			default:
				return (d - inner) / (outer - inner)
			}
		}
	}

	p1 := Point{X: t.Point1.X * fw, Y: t.Point1.Y * fh}
	p2 := Point{X: t.Point2.X * fw, Y: t.Point2.Y * fh}
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	e1 := Point{X: p1.X - boxFade*dx, Y: p1.Y - boxFade*dy}
	e2 := Point{X: p2.X + boxFade*dx, Y: p2.Y + boxFade*dy}
	return func(x, y float64) float64 {
		return clamp01(linearRamp(x, y, e1, p1) + linearRamp(x, y, e2, p2))
	}
}

// linearRamp is 1 at from and beyond, falling to 0 at to and beyond.
func linearRamp(x, y float64, from, to Point) float64 {
	vx, vy := to.X-from.X, to.Y-from.Y
	l2 := vx*vx + vy*vy
	if l2 == 0 {
		return 1
	}
	t := ((x-from.X)*vx + (y-from.Y)*vy) / l2
	return 1 - clamp01(t)
}

func (t *TiltShift) Clone() Stage {
	cp := *t
	return &cp
}
