package filters

import (
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"thirdcoast.systems/camerakit/pkg/utils/crops"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func gradient(w, h int, lo, hi uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := lo + uint8(int(hi-lo)*x/(w-1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	return img
}

func TestOrientationCrop_ScenarioCrop(t *testing.T) {
	o := NewOrientationCrop()
	o.Crop = crops.Crop{X: 0.25, Y: 0, Width: 0.5, Height: 1}

	out := o.Apply(solid(1000, 500, color.NRGBA{R: 10, A: 255}))
	require.Equal(t, image.Rect(0, 0, 500, 500), out.Bounds())
}

func TestOrientationCrop_CropSelectsRegion(t *testing.T) {
	src := gradient(100, 10, 0, 198)
	o := NewOrientationCrop()
	o.Crop = crops.Crop{X: 0.5, Y: 0, Width: 0.5, Height: 1}

	out := o.Apply(src).(*image.NRGBA)
	require.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, src.NRGBAAt(50, 0), out.NRGBAAt(0, 0))
}

func TestOrientationCrop_EmptyCrop(t *testing.T) {
	o := NewOrientationCrop()
	o.Crop = crops.Crop{X: 0.5, Y: 0.5, Width: 0, Height: 0.5}

	out := o.Apply(solid(100, 100, color.NRGBA{A: 255}))
	assert.True(t, IsEmpty(out))
}

func TestOrientationCrop_RotateLeftPeriod(t *testing.T) {
	for _, start := range []Rotation{Rotate0, Rotate90, Rotate180, Rotate270} {
		o := &OrientationCrop{Rotation: start}
		seen := map[Rotation]bool{}
		for i := 0; i < 4; i++ {
			o.RotateLeft()
			seen[o.Rotation] = true
		}
		assert.Equal(t, start, o.Rotation)
		assert.Len(t, seen, 4)

		for i := 0; i < 4; i++ {
			o.RotateRight()
		}
		assert.Equal(t, start, o.Rotation)
	}

	o := NewOrientationCrop()
	o.RotateLeft()
	assert.Equal(t, Rotate90, o.Rotation)
	o.RotateRight()
	o.RotateRight()
	assert.Equal(t, Rotate270, o.Rotation)
}

func TestOrientationCrop_FlipFollowsRotation(t *testing.T) {
	o := NewOrientationCrop()
	o.FlipHorizontal()
	assert.True(t, o.FlipH)
	assert.False(t, o.FlipV)

	o.Reset()
	o.RotateLeft()
	o.FlipHorizontal()
	assert.False(t, o.FlipH)
	assert.True(t, o.FlipV)

	o.FlipVertical()
	assert.True(t, o.FlipH)
}

func TestOrientationCrop_RotateSwapsDimensions(t *testing.T) {
	o := NewOrientationCrop()
	o.RotateLeft()

	out := o.Apply(solid(40, 20, color.NRGBA{A: 255}))
	assert.Equal(t, 20, out.Bounds().Dx())
	assert.Equal(t, 40, out.Bounds().Dy())
}

func TestOrientationCrop_AspectRatio(t *testing.T) {
	chain, err := Compile([]Spec{{Type: KindOrientationCrop, Params: map[string]any{
		"rotation":     90,
		"aspect_ratio": "1:2",
	}}}, nil)
	require.NoError(t, err)

	// 80x40 rotates to 40x80, which is already 1:2.
	out := chain.OrientationCrop().Apply(solid(80, 40, color.NRGBA{A: 255}))
	assert.Equal(t, image.Pt(40, 80), out.Bounds().Size())

	out = chain.OrientationCrop().Apply(solid(40, 40, color.NRGBA{A: 255}))
	assert.Equal(t, image.Pt(20, 40), out.Bounds().Size())

	specs := chain.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, "1:2", specs[0].Params["aspect_ratio"])
}

func TestOrientationCrop_EXIFInverseAfterCrop(t *testing.T) {
	o := NewOrientationCrop()
	o.Orientation = EXIFRotate90CW
	o.Crop = crops.Crop{X: 0, Y: 0, Width: 1, Height: 0.25}

	// Upright the 40x20 image is 20x40; a quarter of its height is 20x10,
	// which rotates back to 10x20.
	out := o.Apply(solid(40, 20, color.NRGBA{A: 255}))
	assert.Equal(t, 10, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())

	assert.Equal(t, EXIFRotate90CCW, EXIFRotate90CW.Inverse())
	assert.Equal(t, EXIFTranspose, EXIFTranspose.Inverse())
}

func TestOrientationCrop_IdentityReturnsInput(t *testing.T) {
	src := solid(10, 10, color.NRGBA{A: 255})
	out := NewOrientationCrop().Apply(src)
	assert.Same(t, src, out)
}

func TestParseRotation(t *testing.T) {
	r, err := ParseRotation(-90)
	require.NoError(t, err)
	assert.Equal(t, Rotate270, r)

	r, err = ParseRotation(450)
	require.NoError(t, err)
	assert.Equal(t, Rotate90, r)

	_, err = ParseRotation(45)
	require.Error(t, err)
}

func TestEnhancement_Memoizes(t *testing.T) {
	src := gradient(64, 8, 100, 150)
	e := NewEnhancement()

	assert.Same(t, src, e.Apply(src), "disabled stage is the identity")

	e.SetEnabled(true)
	first := e.Apply(src)
	second := e.Apply(src)
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.True(t, e.Cached())

	e.Reset()
	assert.False(t, e.Cached())
	third := e.Apply(src)
	assert.NotSame(t, first, third)

	e.SetEnabled(false)
	assert.False(t, e.Cached())
}

func TestEnhancement_NewInputIsAnalysed(t *testing.T) {
	dark := gradient(64, 8, 20, 80)
	bright := gradient(64, 8, 150, 230)
	e := NewEnhancement()
	e.SetEnabled(true)

	first := e.Apply(dark)
	assert.Same(t, first, e.Apply(dark))
	assert.Equal(t, 1, e.Analyses())

	second := e.Apply(bright)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, e.Analyses())

	// Same pixels in a different buffer still count as a new input.
	e.Apply(imaging.Clone(bright))
	assert.Equal(t, 3, e.Analyses())

	// The memo only holds the latest input.
	e.Apply(dark)
	assert.Equal(t, 4, e.Analyses())
}

func TestEnhancement_StretchesLevels(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 256, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 256; x++ {
			v := uint8(100 + 50*x/255)
			src.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	e := NewEnhancement()
	e.SetEnabled(true)

	out := e.Apply(src).(*image.NRGBA)
	lo := out.NRGBAAt(0, 0)
	hi := out.NRGBAAt(255, 0)
	assert.Less(t, int(lo.R), 100)
	assert.Greater(t, int(hi.R), 150)
}

func TestEnhancement_CloneIsIndependent(t *testing.T) {
	e := NewEnhancement()
	e.SetEnabled(true)
	e.Apply(gradient(16, 4, 50, 200))

	cp := e.Clone().(*Enhancement)
	cp.Reset()
	assert.True(t, e.Cached())
	assert.False(t, cp.Cached())
}

func TestTiltShift_OffIsIdentity(t *testing.T) {
	src := checkerboard(20, 20)
	assert.Same(t, src, NewTiltShift().Apply(src))
}

func TestTiltShift_Circle(t *testing.T) {
	src := checkerboard(100, 100)
	blurred := imaging.Blur(src, DefaultBlurRadius)

	ts := NewTiltShift()
	ts.Mode = TiltShiftCircle
	ts.Point1 = Point{X: 0.5, Y: 0.4}
	ts.Point2 = Point{X: 0.5, Y: 0.6}

	out := ts.Apply(src).(*image.NRGBA)
	assert.Equal(t, src.NRGBAAt(50, 50), out.NRGBAAt(50, 50))
	assert.Equal(t, blurred.NRGBAAt(0, 0), out.NRGBAAt(0, 0))
	assert.Equal(t, blurred.NRGBAAt(99, 99), out.NRGBAAt(99, 99))
}

func TestTiltShift_Box(t *testing.T) {
	src := checkerboard(100, 100)
	blurred := imaging.Blur(src, DefaultBlurRadius)

	ts := NewTiltShift()
	ts.Mode = TiltShiftBox
	ts.Point1 = Point{X: 0.5, Y: 0.4}
	ts.Point2 = Point{X: 0.5, Y: 0.6}

	out := ts.Apply(src).(*image.NRGBA)
	// Inside the band every column is sharp.
	assert.Equal(t, src.NRGBAAt(3, 50), out.NRGBAAt(3, 50))
	assert.Equal(t, src.NRGBAAt(97, 50), out.NRGBAAt(97, 50))
	// Far outside it is fully blurred.
	assert.Equal(t, blurred.NRGBAAt(50, 0), out.NRGBAAt(50, 0))
	assert.Equal(t, blurred.NRGBAAt(50, 99), out.NRGBAAt(50, 99))
}

func TestColorControls(t *testing.T) {
	src := solid(4, 4, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	cc := NewColorControls()
	assert.Same(t, src, cc.Apply(src))

	cc.Brightness = 0.2
	out := cc.Apply(src).(*image.NRGBA)
	assert.InDelta(t, 151, int(out.NRGBAAt(0, 0).R), 1)

	gray := NewColorControls()
	gray.Saturation = 0
	out = gray.Apply(solid(2, 2, color.NRGBA{R: 255, A: 255})).(*image.NRGBA)
	px := out.NRGBAAt(0, 0)
	assert.Equal(t, px.R, px.G)
	assert.Equal(t, px.G, px.B)
}

func TestResponse(t *testing.T) {
	src := gradient(32, 4, 20, 220)
	r := NewResponse()
	assert.Same(t, src, r.Apply(src))

	r.Look = LookBW
	out := r.Apply(src).(*image.NRGBA)
	px := out.NRGBAAt(10, 0)
	assert.Equal(t, px.R, px.G)
	assert.Equal(t, px.G, px.B)

	r.Look = LookHighContrast
	out = r.Apply(src).(*image.NRGBA)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestResponse_LUTOverridesCurve(t *testing.T) {
	src := gradient(32, 4, 0, 255)
	r := &Response{Look: LookBW, LUT: IdentityLUT()}

	out := r.Apply(src).(*image.NRGBA)
	for x := 0; x < 32; x += 5 {
		want := src.NRGBAAt(x, 0)
		got := out.NRGBAAt(x, 0)
		assert.InDelta(t, int(want.R), int(got.R), 3)
		assert.InDelta(t, int(want.G), int(got.G), 3)
		assert.InDelta(t, int(want.B), int(got.B), 3)
	}
}

func TestResponse_LUTWithoutLook(t *testing.T) {
	cube := make([]color.NRGBA, lutSize*lutSize*lutSize)
	for i := range cube {
		cube[i] = color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	}
	res := fakeResources{}
	c := NewChain()
	require.NoError(t, c.ApplySpec(Spec{Type: KindResponse, Params: map[string]any{"lut": "flat"}}, res))
	require.NotNil(t, c.Response().LUT)
	assert.Equal(t, LookNone, c.Response().Look)
	assert.False(t, c.Response().IsIdentity())

	specs := c.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, "flat", specs[0].Params["lut"])

	c.Response().LUT = &LUT{Name: "flat", cube: cube}
	out := c.Response().Apply(gradient(16, 2, 0, 255)).(*image.NRGBA)
	px := out.NRGBAAt(7, 1)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, px)
}

func TestLooks(t *testing.T) {
	looks := Looks()
	require.Greater(t, len(looks), 60)
	assert.Equal(t, LookNone, looks[0])

	for _, l := range looks {
		parsed, err := ParseLook(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
	}

	_, err := ParseLook("does-not-exist")
	require.Error(t, err)
}

func testFont(t *testing.T) *opentype.Font {
	t.Helper()
	f, err := opentype.Parse(goregular.TTF)
	require.NoError(t, err)
	return f
}

func TestText(t *testing.T) {
	src := solid(200, 100, color.NRGBA{A: 255})
	txt := NewText()
	txt.Font = testFont(t)
	assert.Same(t, src, txt.Apply(src), "empty text is the identity")

	txt.Text = "Hello"
	txt.FontScale = 0.5
	out := txt.Apply(src).(*image.NRGBA)

	lit := 0
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if out.NRGBAAt(x, y).R > 128 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 50)
	assert.Equal(t, uint8(0), src.NRGBAAt(10, 30).R, "input untouched")
}

func TestSticker(t *testing.T) {
	src := solid(100, 100, color.NRGBA{A: 255})
	red := solid(10, 10, color.NRGBA{R: 255, A: 255})

	s := NewSticker("dot", red)
	s.Scale = 0.2
	out := s.Apply(src).(*image.NRGBA)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(50, 50))
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(5, 5))

	s.Center = Point{X: 0.1, Y: 0.1}
	out = s.Apply(src).(*image.NRGBA)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(10, 10))

	none := NewSticker("none", nil)
	assert.Same(t, src, none.Apply(src))
}

func TestSticker_RotationInDegrees(t *testing.T) {
	src := solid(100, 100, color.NRGBA{A: 255})
	bar := solid(40, 4, color.NRGBA{R: 255, A: 255})

	s := NewSticker("bar", bar)
	s.Scale = 0.4
	out := s.Apply(src).(*image.NRGBA)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(35, 50))
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(50, 35))

	s.Rotation = 90
	out = s.Apply(src).(*image.NRGBA)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(50, 35))
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(35, 50))
}

func TestScale(t *testing.T) {
	src := solid(100, 50, color.NRGBA{A: 255})
	assert.Same(t, src, NewScale(1).Apply(src))

	out := NewScale(0.5).Apply(src)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 25, out.Bounds().Dy())
}

func TestChain_SlotOrder(t *testing.T) {
	c := NewChain()
	c.AddSticker(NewSticker("a", solid(2, 2, color.NRGBA{A: 255})))

	var kinds []Kind
	for _, s := range c.Stages() {
		kinds = append(kinds, s.Kind())
	}
	assert.Equal(t, []Kind{
		KindEnhancement,
		KindOrientationCrop,
		KindTiltShift,
		KindResponse,
		KindColorControls,
		KindText,
		KindSticker,
	}, kinds)
}

func TestChain_CloneIsolation(t *testing.T) {
	c := NewChain()
	c.TiltShift().Mode = TiltShiftCircle
	c.AddSticker(NewSticker("a", solid(4, 4, color.NRGBA{R: 1, A: 255})))

	cp := c.Clone()
	cp.TiltShift().Mode = TiltShiftBox
	cp.OrientationCrop().RotateLeft()
	cp.ColorControls().Brightness = 0.5
	cp.Text().Text = "changed"
	cp.Stickers()[0].Scale = 0.9
	cp.Stickers()[0].Image.(*image.NRGBA).SetNRGBA(0, 0, color.NRGBA{R: 200, A: 255})
	cp.AddSticker(NewSticker("b", solid(4, 4, color.NRGBA{A: 255})))
	cp.Enhancement().SetEnabled(true)

	assert.Equal(t, TiltShiftCircle, c.TiltShift().Mode)
	assert.Equal(t, Rotate0, c.OrientationCrop().Rotation)
	assert.Equal(t, 0.0, c.ColorControls().Brightness)
	assert.Empty(t, c.Text().Text)
	require.Len(t, c.Stickers(), 1)
	assert.Equal(t, 0.25, c.Stickers()[0].Scale)
	assert.Equal(t, uint8(1), c.Stickers()[0].Image.(*image.NRGBA).NRGBAAt(0, 0).R)
	assert.False(t, c.Enhancement().Enabled())
}

func TestChain_RemoveSticker(t *testing.T) {
	c := NewChain()
	c.AddSticker(NewSticker("a", nil))
	c.AddSticker(NewSticker("b", nil))

	assert.False(t, c.RemoveSticker(5))
	assert.True(t, c.RemoveSticker(0))
	require.Len(t, c.Stickers(), 1)
	assert.Equal(t, "b", c.Stickers()[0].Name)
}

type fakeResources struct {
	font *opentype.Font
}

func (f fakeResources) Font(string) (*opentype.Font, error) { return f.font, nil }
func (f fakeResources) Sticker(name string) (image.Image, error) {
	return solid(8, 4, color.NRGBA{G: 255, A: 255}), nil
}
func (f fakeResources) LUT(name string) (*LUT, error) {
	lut := IdentityLUT()
	lut.Name = name
	return lut, nil
}

func TestCompile(t *testing.T) {
	raw := `[
		{"type": "enhancement"},
		{"type": "orientation_crop", "params": {"rotation": 90, "flip_h": true, "x": 0.1, "y": 0.2, "width": 0.5, "height": 0.5}},
		{"type": "tiltshift", "params": {"mode": "circle", "x1": 0.4, "y1": 0.5, "x2": 0.6, "y2": 0.5, "blur_radius": 6}},
		{"type": "response", "params": {"look": "k1"}},
		{"type": "color_controls", "params": {"brightness": 0.1, "contrast": 1.2, "saturation": 0.8}},
		{"type": "text", "params": {"text": "hi", "color": "#ff0000"}},
		{"type": "sticker", "params": {"name": "star", "x": 0.3, "y": 0.7, "scale": 0.1, "rotation": 90}},
		{"type": "sticker", "params": {"name": "heart"}}
	]`
	var specs []Spec
	require.NoError(t, json.Unmarshal([]byte(raw), &specs))

	res := fakeResources{font: testFont(t)}
	c, err := Compile(specs, res)
	require.NoError(t, err)

	assert.True(t, c.Enhancement().Enabled())
	assert.Equal(t, Rotate90, c.OrientationCrop().Rotation)
	assert.True(t, c.OrientationCrop().FlipH)
	assert.InDelta(t, 0.2, c.OrientationCrop().Crop.Y, 1e-9)
	assert.Equal(t, TiltShiftCircle, c.TiltShift().Mode)
	assert.Equal(t, 6.0, c.TiltShift().BlurRadius)
	assert.Equal(t, LookK1, c.Response().Look)
	assert.InDelta(t, 1.2, c.ColorControls().Contrast, 1e-9)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, c.Text().Color)
	assert.NotNil(t, c.Text().Font)
	require.Len(t, c.Stickers(), 2)
	assert.Equal(t, "star", c.Stickers()[0].Name)

	again, err := Compile(c.Specs(), res)
	require.NoError(t, err)
	assert.Equal(t, c.Specs(), again.Specs())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"unknown type", Spec{Type: "sepia"}},
		{"bad rotation", Spec{Type: KindOrientationCrop, Params: map[string]any{"rotation": 45.0}}},
		{"bad look", Spec{Type: KindResponse, Params: map[string]any{"look": "nope"}}},
		{"bad mode", Spec{Type: KindTiltShift, Params: map[string]any{"mode": "triangle"}}},
		{"bad color", Spec{Type: KindText, Params: map[string]any{"color": "#12"}}},
		{"sticker without name", Spec{Type: KindSticker}},
		{"scale is not a slot", Spec{Type: KindScale}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]Spec{tt.spec}, fakeResources{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "filter[0]")
		})
	}
}

func TestCompileStage(t *testing.T) {
	s, err := CompileStage(Spec{Type: KindScale, Params: map[string]any{"factor": 0.5}}, nil)
	require.NoError(t, err)
	assert.Equal(t, KindScale, s.Kind())

	s, err = CompileStage(Spec{Type: KindResponse, Params: map[string]any{"look": "BW"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, LookBW, s.(*Response).Look)

	_, err = CompileStage(Spec{Type: KindSticker, Params: map[string]any{"name": "x"}}, nil)
	require.Error(t, err)
}

func TestCatalog(t *testing.T) {
	cat := Catalog()
	require.Len(t, cat, len(Kinds))
	assert.Equal(t, "Orientation Crop", cat[1].Label)
	assert.Equal(t, "Tilt Shift", LabelForKind(KindTiltShift))
	assert.Equal(t, "overlay", CategoryForKind(KindSticker))
	assert.Len(t, LookOptions(), len(Looks()))
}
