package filters

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// LUT geometry: a 64x64x64 cube stored as an 8x8 grid of 64x64 tiles in a
// 512x512 image. Red runs along x, green along y, blue selects the tile.
const (
	lutSize  = 64
	lutTiles = 8
	lutImage = lutSize * lutTiles
)

// LUT is a 3D color lookup table.
type LUT struct {
	Name string
	cube []color.NRGBA
}

// DecodeLUT reads a tile-layout LUT image.
func DecodeLUT(name string, r io.Reader) (*LUT, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode lut %s: %w", name, err)
	}
	return LUTFromImage(name, img)
}

// LUTFromImage converts a 512x512 tile-layout image into a LUT.
func LUTFromImage(name string, img image.Image) (*LUT, error) {
	b := img.Bounds()
	if b.Dx() != lutImage || b.Dy() != lutImage {
		return nil, fmt.Errorf("lut %s: expected %dx%d image, got %dx%d", name, lutImage, lutImage, b.Dx(), b.Dy())
	}

	src := toNRGBA(img)
	cube := make([]color.NRGBA, lutSize*lutSize*lutSize)
	for bl := 0; bl < lutSize; bl++ {
		tx := (bl % lutTiles) * lutSize
		ty := (bl / lutTiles) * lutSize
		for g := 0; g < lutSize; g++ {
			for r := 0; r < lutSize; r++ {
				cube[lutIndex(r, g, bl)] = src.NRGBAAt(tx+r, ty+g)
			}
		}
	}
	return &LUT{Name: name, cube: cube}, nil
}

// IdentityLUT builds the LUT that maps every color to itself.
func IdentityLUT() *LUT {
	img := image.NewNRGBA(image.Rect(0, 0, lutImage, lutImage))
	for bl := 0; bl < lutSize; bl++ {
		tx := (bl % lutTiles) * lutSize
		ty := (bl / lutTiles) * lutSize
		for g := 0; g < lutSize; g++ {
			for r := 0; r < lutSize; r++ {
				img.SetNRGBA(tx+r, ty+g, color.NRGBA{
					R: uint8(r * 255 / (lutSize - 1)),
					G: uint8(g * 255 / (lutSize - 1)),
					B: uint8(bl * 255 / (lutSize - 1)),
					A: 255,
				})
			}
		}
	}
	lut, _ := LUTFromImage("identity", img)
	return lut
}

func lutIndex(r, g, b int) int {
	return (b*lutSize+g)*lutSize + r
}

// lookup maps one color through the cube with trilinear interpolation.
func (l *LUT) lookup(c color.NRGBA) color.NRGBA {
	const scale = float64(lutSize-1) / 255

	fr, fg, fb := float64(c.R)*scale, float64(c.G)*scale, float64(c.B)*scale
	r0, g0, b0 := int(fr), int(fg), int(fb)
	r1, g1, b1 := min(r0+1, lutSize-1), min(g0+1, lutSize-1), min(b0+1, lutSize-1)
	dr, dg, db := fr-float64(r0), fg-float64(g0), fb-float64(b0)

	var out [3]float64
	corners := [8]struct {
		r, g, b int
		w       float64
	}{
		{r0, g0, b0, (1 - dr) * (1 - dg) * (1 - db)},
		{r1, g0, b0, dr * (1 - dg) * (1 - db)},
		{r0, g1, b0, (1 - dr) * dg * (1 - db)},
		{r1, g1, b0, dr * dg * (1 - db)},
		{r0, g0, b1, (1 - dr) * (1 - dg) * db},
		{r1, g0, b1, dr * (1 - dg) * db},
		{r0, g1, b1, (1 - dr) * dg * db},
		{r1, g1, b1, dr * dg * db},
	}
	for _, k := range corners {
		v := l.cube[lutIndex(k.r, k.g, k.b)]
		out[0] += float64(v.R) * k.w
		out[1] += float64(v.G) * k.w
		out[2] += float64(v.B) * k.w
	}

	return color.NRGBA{
		R: uint8(out[0] + 0.5),
		G: uint8(out[1] + 0.5),
		B: uint8(out[2] + 0.5),
		A: c.A,
	}
}
