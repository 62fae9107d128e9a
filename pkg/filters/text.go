package filters

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"thirdcoast.systems/camerakit/pkg/utils/crops"
)

const (
	DefaultFontName  = "Helvetica Neue"
	DefaultFontScale = 0.1
)

// Text draws a string inside a unit-coordinate frame. The font size is
// FontScale times the image height. Lines wrap at word boundaries to fit
// the frame width.
type Text struct {
	Text      string
	Color     color.NRGBA
	FontName  string
	FontScale float64
	Frame     crops.Crop

	// Font is the parsed face for FontName. Parsed fonts are read-only and
	// shared between clones.
	Font *opentype.Font
}

// NewText returns an empty text stage.
func NewText() *Text {
	return &Text{
		Color:     color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		FontName:  DefaultFontName,
		FontScale: DefaultFontScale,
		Frame:     crops.Full(),
	}
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) Apply(img image.Image) image.Image {
	if IsEmpty(img) || strings.TrimSpace(t.Text) == "" || t.Font == nil {
		return img
	}

	base := toNRGBA(img)
	b := base.Rect
	size := t.FontScale * float64(b.Dy())
	if size < 1 {
		return img
	}

	face, err := opentype.NewFace(t.Font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		slog.Warn("text stage: failed to build face", "font", t.FontName, "error", err)
		return img
	}
	defer face.Close()

	frame := t.Frame.ToPixels(b)
	if frame.Empty() {
		return img
	}

	overlay := image.NewNRGBA(b)
	d := &font.Drawer{
		Dst:  overlay,
		Src:  image.NewUniform(t.Color),
		Face: face,
	}

	metrics := face.Metrics()
	lineHeight := metrics.Height
	dot := fixed.P(frame.Min.X, frame.Min.Y).Add(fixed.Point26_6{Y: metrics.Ascent})
	for _, line := range wrapLines(d, t.Text, fixed.I(frame.Dx())) {
		if dot.Y.Ceil() > frame.Max.Y {
			break
		}
		d.Dot = dot
		d.DrawString(line)
		dot.Y += lineHeight
	}

	out := image.NewNRGBA(b)
	draw.Draw(out, b, base, b.Min, draw.Src)
	draw.Draw(out, frame, overlay, frame.Min, draw.Over)
	return out
}

// wrapLines splits s into lines no wider than width. Explicit newlines are
// kept; a single word wider than width gets its own line.
func wrapLines(d *font.Drawer, s string, width fixed.Int26_6) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			next := cur + " " + w
			if d.MeasureString(next) > width {
				lines = append(lines, cur)
				cur = w
				continue
			}
			cur = next
		}
		lines = append(lines, cur)
	}
	return lines
}

func (t *Text) Clone() Stage {
	cp := *t
	return &cp
}
