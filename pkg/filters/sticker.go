package filters

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Sticker overlays a bitmap. Center is in unit coordinates; Scale is the
// sticker width as a fraction of the image width, and the height follows
// the bitmap's aspect ratio. Rotation is in degrees, clockwise on screen.
type Sticker struct {
	Name     string
	Image    image.Image
	Center   Point
	Scale    float64
	Rotation float64
}

// NewSticker returns a sticker centered in the image at a quarter width.
func NewSticker(name string, img image.Image) *Sticker {
	return &Sticker{
		Name:   name,
		Image:  img,
		Center: Point{X: 0.5, Y: 0.5},
		Scale:  0.25,
	}
}

func (s *Sticker) Kind() Kind { return KindSticker }

func (s *Sticker) Apply(img image.Image) image.Image {
	if IsEmpty(img) || IsEmpty(s.Image) || s.Scale <= 0 {
		return img
	}

	base := toNRGBA(img)
	b := base.Rect
	sb := s.Image.Bounds()

	w := s.Scale * float64(b.Dx())
	h := w * float64(sb.Dy()) / float64(sb.Dx())
	if w < 1 || h < 1 {
		return img
	}

	overlay := image.NewRGBA(b)
	draw.BiLinear.Transform(overlay, s.transform(b, sb, w, h), s.Image, sb, draw.Src, nil)

	out := imaging.Clone(base)
	draw.Draw(out, b, overlay, b.Min, draw.Over)
	return out
}

// transform maps sticker pixels onto the image: center the bitmap on the
// origin, scale it to w x h, rotate, then move it to Center.
func (s *Sticker) transform(dst, src image.Rectangle, w, h float64) f64.Aff3 {
	sx := w / float64(src.Dx())
	sy := h / float64(src.Dy())
	theta := s.Rotation * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	cx := float64(src.Min.X) + float64(src.Dx())/2
	cy := float64(src.Min.Y) + float64(src.Dy())/2
	tx := float64(dst.Min.X) + s.Center.X*float64(dst.Dx())
	ty := float64(dst.Min.Y) + s.Center.Y*float64(dst.Dy())

	a, b := cos*sx, -sin*sy
	d, e := sin*sx, cos*sy
	return f64.Aff3{
		a, b, tx - (a*cx + b*cy),
		d, e, ty - (d*cx + e*cy),
	}
}

func (s *Sticker) Clone() Stage {
	cp := *s
	if s.Image != nil {
		cp.Image = imaging.Clone(s.Image)
	}
	return &cp
}
