package filters

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/font/opentype"

	"thirdcoast.systems/camerakit/pkg/utils/crops"
)

// Spec is the JSON form of one stage: {"type": "...", "params": {...}}.
type Spec struct {
	// Type is a Kind such as "tiltshift" or "response".
	Type Kind `json:"type"`
	// Params holds type-specific parameters as a loosely-typed map.
	Params map[string]any `json:"params,omitempty"`
}

// Resources loads named payloads referenced by specs.
type Resources interface {
	Font(name string) (*opentype.Font, error)
	Sticker(name string) (image.Image, error)
	LUT(name string) (*LUT, error)
}

// Compile builds a Chain from specs. Each spec configures its slot; a later
// spec for the same slot wins, and every sticker spec adds an overlay.
func Compile(specs []Spec, res Resources) (*Chain, error) {
	chain := NewChain()
	for i, spec := range specs {
		if err := chain.ApplySpec(spec, res); err != nil {
			return nil, fmt.Errorf("filter[%d] (%s): %w", i, spec.Type, err)
		}
	}
	return chain, nil
}

// ApplySpec configures the slot named by spec.Type.
func (c *Chain) ApplySpec(spec Spec, res Resources) error {
	switch spec.Type {
	case KindEnhancement:
		c.enhancement.SetEnabled(paramBool(spec.Params, "enabled", true))
		return nil
	case KindOrientationCrop:
		return configureOrientation(c.orientation, spec.Params)
	case KindTiltShift:
		return configureTiltShift(c.tiltShift, spec.Params)
	case KindResponse:
		return configureResponse(c.response, spec.Params, res)
	case KindColorControls:
		configureColor(c.color, spec.Params)
		return nil
	case KindText:
		return configureText(c.text, spec.Params, res)
	case KindSticker:
		s, err := newStickerFromParams(spec.Params, res)
		if err != nil {
			return err
		}
		c.AddSticker(s)
		return nil
	case KindScale:
		return fmt.Errorf("scale is not a chain slot")
	default:
		return fmt.Errorf("unknown filter type %q", spec.Type)
	}
}

// CompileStage builds a single standalone stage, as used for the live
// preview effect.
func CompileStage(spec Spec, res Resources) (Stage, error) {
	var (
		stage Stage
		err   error
	)
	switch spec.Type {
	case KindEnhancement:
		e := NewEnhancement()
		e.SetEnabled(paramBool(spec.Params, "enabled", true))
		stage = e
	case KindOrientationCrop:
		o := NewOrientationCrop()
		err = configureOrientation(o, spec.Params)
		stage = o
	case KindTiltShift:
		t := NewTiltShift()
		err = configureTiltShift(t, spec.Params)
		stage = t
	case KindResponse:
		r := NewResponse()
		err = configureResponse(r, spec.Params, res)
		stage = r
	case KindColorControls:
		cc := NewColorControls()
		configureColor(cc, spec.Params)
		stage = cc
	case KindText:
		t := NewText()
		err = configureText(t, spec.Params, res)
		stage = t
	case KindSticker:
		stage, err = newStickerFromParams(spec.Params, res)
	case KindScale:
		stage = NewScale(paramFloat(spec.Params, "factor", 1))
	default:
		err = fmt.Errorf("unknown filter type %q", spec.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Type, err)
	}
	return stage, nil
}

// Specs returns the non-identity slots of c as specs, in slot order.
func (c *Chain) Specs() []Spec {
	var out []Spec
	if c.enhancement.Enabled() {
		out = append(out, Spec{Type: KindEnhancement, Params: map[string]any{"enabled": true}})
	}
	if o := c.orientation; !o.IsIdentity() {
		out = append(out, Spec{Type: KindOrientationCrop, Params: map[string]any{
			"rotation":    int(o.Rotation),
			"flip_h":      o.FlipH,
			"flip_v":      o.FlipV,
			"x":           o.Crop.X,
			"y":           o.Crop.Y,
			"width":       o.Crop.Width,
			"height":      o.Crop.Height,
			"orientation": int(o.Orientation),
		}})
		if o.Crop.AspectRatio != "" {
			out[len(out)-1].Params["aspect_ratio"] = o.Crop.AspectRatio
		}
	}
	if t := c.tiltShift; t.Mode != TiltShiftOff {
		out = append(out, Spec{Type: KindTiltShift, Params: map[string]any{
			"mode":        t.Mode.String(),
			"x1":          t.Point1.X,
			"y1":          t.Point1.Y,
			"x2":          t.Point2.X,
			"y2":          t.Point2.Y,
			"blur_radius": t.BlurRadius,
		}})
	}
	if r := c.response; !r.IsIdentity() {
		p := map[string]any{"look": r.Look.String()}
		if r.LUT != nil {
			p["lut"] = r.LUT.Name
		}
		out = append(out, Spec{Type: KindResponse, Params: p})
	}
	if cc := c.color; !cc.IsIdentity() {
		out = append(out, Spec{Type: KindColorControls, Params: map[string]any{
			"brightness": cc.Brightness,
			"contrast":   cc.Contrast,
			"saturation": cc.Saturation,
		}})
	}
	if t := c.text; t.Text != "" {
		out = append(out, Spec{Type: KindText, Params: map[string]any{
			"text":       t.Text,
			"color":      formatHexColor(t.Color),
			"font":       t.FontName,
			"font_scale": t.FontScale,
			"x":          t.Frame.X,
			"y":          t.Frame.Y,
			"width":      t.Frame.Width,
			"height":     t.Frame.Height,
		}})
	}
	for _, s := range c.stickers {
		out = append(out, Spec{Type: KindSticker, Params: map[string]any{
			"name":     s.Name,
			"x":        s.Center.X,
			"y":        s.Center.Y,
			"scale":    s.Scale,
			"rotation": s.Rotation,
		}})
	}
	return out
}

func configureOrientation(o *OrientationCrop, params map[string]any) error {
	rot, err := ParseRotation(paramInt(params, "rotation", int(o.Rotation)))
	if err != nil {
		return err
	}
	o.Rotation = rot
	o.FlipH = paramBool(params, "flip_h", o.FlipH)
	o.FlipV = paramBool(params, "flip_v", o.FlipV)

	exif := EXIFOrientation(paramInt(params, "orientation", int(o.Orientation)))
	if exif < 0 || exif > EXIFRotate90CCW {
		return fmt.Errorf("orientation must be 1-8, got %d", exif)
	}
	o.Orientation = exif

	o.Crop = crops.Crop{
		X:      paramFloat(params, "x", o.Crop.X),
		Y:      paramFloat(params, "y", o.Crop.Y),
		Width:  paramFloat(params, "width", o.Crop.Width),
		Height: paramFloat(params, "height", o.Crop.Height),
	}
	if aspect, ok := params["aspect_ratio"].(string); ok && aspect != "" {
		o.Crop.AspectRatio = aspect
	}
	return nil
}

func configureTiltShift(t *TiltShift, params map[string]any) error {
	mode, err := ParseTiltShiftMode(paramString(params, "mode", t.Mode.String()))
	if err != nil {
		return err
	}
	t.Mode = mode
	t.Point1 = Point{X: paramFloat(params, "x1", t.Point1.X), Y: paramFloat(params, "y1", t.Point1.Y)}
	t.Point2 = Point{X: paramFloat(params, "x2", t.Point2.X), Y: paramFloat(params, "y2", t.Point2.Y)}
	t.BlurRadius = paramFloat(params, "blur_radius", t.BlurRadius)
	if t.BlurRadius < 0 {
		return fmt.Errorf("blur_radius must not be negative")
	}
	return nil
}

func configureResponse(r *Response, params map[string]any, res Resources) error {
	look, err := ParseLook(paramString(params, "look", r.Look.String()))
	if err != nil {
		return err
	}
	r.Look = look
	r.LUT = nil

	if name := paramString(params, "lut", ""); name != "" {
		if res == nil {
			return fmt.Errorf("lut %q requested without a resource loader", name)
		}
		lut, err := res.LUT(name)
		if err != nil {
			return fmt.Errorf("load lut: %w", err)
		}
		r.LUT = lut
	}
	return nil
}

func configureColor(c *ColorControls, params map[string]any) {
	c.Brightness = paramFloat(params, "brightness", c.Brightness)
	c.Contrast = paramFloat(params, "contrast", c.Contrast)
	c.Saturation = paramFloat(params, "saturation", c.Saturation)
}

func configureText(t *Text, params map[string]any, res Resources) error {
	t.Text = paramString(params, "text", t.Text)
	t.FontName = paramString(params, "font", t.FontName)
	t.FontScale = paramFloat(params, "font_scale", t.FontScale)
	t.Frame = crops.Crop{
		X:      paramFloat(params, "x", t.Frame.X),
		Y:      paramFloat(params, "y", t.Frame.Y),
		Width:  paramFloat(params, "width", t.Frame.Width),
		Height: paramFloat(params, "height", t.Frame.Height),
	}

	if raw := paramString(params, "color", ""); raw != "" {
		c, err := parseHexColor(raw)
		if err != nil {
			return err
		}
		t.Color = c
	}

	if res != nil {
		f, err := res.Font(t.FontName)
		if err != nil {
			return fmt.Errorf("load font: %w", err)
		}
		t.Font = f
	}
	return nil
}

func newStickerFromParams(params map[string]any, res Resources) (*Sticker, error) {
	name := paramString(params, "name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if res == nil {
		return nil, fmt.Errorf("sticker %q requested without a resource loader", name)
	}
	img, err := res.Sticker(name)
	if err != nil {
		return nil, fmt.Errorf("load sticker: %w", err)
	}

	s := NewSticker(name, img)
	s.Center = Point{X: paramFloat(params, "x", s.Center.X), Y: paramFloat(params, "y", s.Center.Y)}
	s.Scale = paramFloat(params, "scale", s.Scale)
	s.Rotation = paramFloat(params, "rotation", 0)
	return s, nil
}

// paramFloat extracts a float64 from a params map with a default value.
func paramFloat(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

func paramInt(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case float32:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

func paramBool(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

func paramString(params map[string]any, key string, def string) string {
	v, ok := params[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func formatHexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
