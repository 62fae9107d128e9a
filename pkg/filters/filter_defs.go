package filters

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FilterParamType describes the kind of input control for a filter parameter.
type FilterParamType string

const (
	FilterParamRange  FilterParamType = "range"
	FilterParamSelect FilterParamType = "select"
	FilterParamNumber FilterParamType = "number"
	FilterParamText   FilterParamType = "text"
	FilterParamBool   FilterParamType = "bool"
	FilterParamColor  FilterParamType = "color"
)

// FilterOption is a single choice in a select parameter.
type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterParam describes one adjustable parameter for a stage kind.
type FilterParam struct {
	Key        string          `json:"key"`
	Label      string          `json:"label"`
	Type       FilterParamType `json:"type"`
	Min        float64         `json:"min,omitempty"`
	Max        float64         `json:"max,omitempty"`
	Step       float64         `json:"step,omitempty"`
	DefaultVal string          `json:"default"`
	Decimals   int             `json:"decimals,omitempty"`
	Options    []FilterOption  `json:"options,omitempty"`
}

// KindInfo is the catalog entry for one stage kind.
type KindInfo struct {
	Kind     Kind          `json:"kind"`
	Label    string        `json:"label"`
	Category string        `json:"category"`
	Params   []FilterParam `json:"params"`
}

// Kinds lists the chain slot kinds in execution order, then scale.
var Kinds = []Kind{
	KindEnhancement,
	KindOrientationCrop,
	KindTiltShift,
	KindResponse,
	KindColorControls,
	KindText,
	KindSticker,
	KindScale,
}

// Catalog describes every stage kind and its parameters.
func Catalog() []KindInfo {
	out := make([]KindInfo, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, KindInfo{
			Kind:     k,
			Label:    LabelForKind(k),
			Category: CategoryForKind(k),
			Params:   ParamsForKind(k),
		})
	}
	return out
}

// FmtNum formats a float without trailing zeros.
func FmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// LabelForKind returns the human-readable label for a stage kind.
func LabelForKind(k Kind) string {
	switch k {
	case KindTiltShift:
		return "Tilt Shift"
	case KindResponse:
		return "Look"
	}
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(string(k), "_", " "))
}

// CategoryForKind groups kinds for display.
func CategoryForKind(k Kind) string {
	switch k {
	case KindOrientationCrop, KindScale:
		return "spatial"
	case KindText, KindSticker:
		return "overlay"
	case KindTiltShift:
		return "focus"
	default:
		return "color"
	}
}

// LookOptions returns the select options for the response stage.
func LookOptions() []FilterOption {
	looks := Looks()
	out := make([]FilterOption, 0, len(looks))
	for _, l := range looks {
		label := l.String()
		if l == LookNone {
			label = "None"
		}
		out = append(out, FilterOption{Value: l.String(), Label: label})
	}
	return out
}

// ParamsForKind returns the parameter definitions for a stage kind.
func ParamsForKind(k Kind) []FilterParam {
	switch k {
	case KindEnhancement:
		return []FilterParam{{Key: "enabled", Label: "Enabled", Type: FilterParamBool, DefaultVal: "false"}}
	case KindOrientationCrop:
		return []FilterParam{
			{Key: "rotation", Label: "Rotation", Type: FilterParamSelect, DefaultVal: "0", Options: []FilterOption{
				{Value: "0", Label: "0°"}, {Value: "90", Label: "90°"}, {Value: "180", Label: "180°"}, {Value: "270", Label: "270°"},
			}},
			{Key: "flip_h", Label: "Flip H", Type: FilterParamBool, DefaultVal: "false"},
			{Key: "flip_v", Label: "Flip V", Type: FilterParamBool, DefaultVal: "false"},
			{Key: "x", Label: "X", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.001, DefaultVal: "0", Decimals: 3},
			{Key: "y", Label: "Y", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.001, DefaultVal: "0", Decimals: 3},
			{Key: "width", Label: "Width", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.001, DefaultVal: "1", Decimals: 3},
			{Key: "height", Label: "Height", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.001, DefaultVal: "1", Decimals: 3},
		}
	case KindTiltShift:
		return []FilterParam{
			{Key: "mode", Label: "Mode", Type: FilterParamSelect, DefaultVal: "off", Options: []FilterOption{
				{Value: "off", Label: "Off"}, {Value: "box", Label: "Box"}, {Value: "circle", Label: "Circle"},
			}},
			{Key: "x1", Label: "Point 1 X", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.01, DefaultVal: "0.5", Decimals: 2},
			{Key: "y1", Label: "Point 1 Y", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.01, DefaultVal: "0.4", Decimals: 2},
			{Key: "x2", Label: "Point 2 X", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.01, DefaultVal: "0.5", Decimals: 2},
			{Key: "y2", Label: "Point 2 Y", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.01, DefaultVal: "0.6", Decimals: 2},
			{Key: "blur_radius", Label: "Blur Radius", Type: FilterParamRange, Min: 0, Max: 50, Step: 0.5, DefaultVal: FmtNum(DefaultBlurRadius), Decimals: 1},
		}
	case KindResponse:
		return []FilterParam{
			{Key: "look", Label: "Look", Type: FilterParamSelect, DefaultVal: "none", Options: LookOptions()},
			{Key: "lut", Label: "LUT", Type: FilterParamText},
		}
	case KindColorControls:
		return []FilterParam{
			{Key: "brightness", Label: "Brightness", Type: FilterParamRange, Min: -1, Max: 1, Step: 0.01, DefaultVal: "0", Decimals: 2},
			{Key: "contrast", Label: "Contrast", Type: FilterParamRange, Min: 0, Max: 2, Step: 0.01, DefaultVal: "1", Decimals: 2},
			{Key: "saturation", Label: "Saturation", Type: FilterParamRange, Min: 0, Max: 2, Step: 0.01, DefaultVal: "1", Decimals: 2},
		}
	case KindText:
		return []FilterParam{
			{Key: "text", Label: "Text", Type: FilterParamText},
			{Key: "color", Label: "Color", Type: FilterParamColor, DefaultVal: "#ffffffff"},
			{Key: "font", Label: "Font", Type: FilterParamText, DefaultVal: DefaultFontName},
			{Key: "font_scale", Label: "Font Scale", Type: FilterParamRange, Min: 0.01, Max: 1, Step: 0.01, DefaultVal: FmtNum(DefaultFontScale), Decimals: 2},
		}
	case KindSticker:
		return []FilterParam{
			{Key: "name", Label: "Sticker", Type: FilterParamText},
			{Key: "x", Label: "Center X", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.01, DefaultVal: "0.5", Decimals: 2},
			{Key: "y", Label: "Center Y", Type: FilterParamRange, Min: 0, Max: 1, Step: 0.01, DefaultVal: "0.5", Decimals: 2},
			{Key: "scale", Label: "Scale", Type: FilterParamRange, Min: 0.01, Max: 2, Step: 0.01, DefaultVal: "0.25", Decimals: 2},
			{Key: "rotation", Label: "Rotation", Type: FilterParamNumber, Min: -360, Max: 360, Step: 1, DefaultVal: "0"},
		}
	case KindScale:
		return []FilterParam{
			{Key: "factor", Label: "Factor", Type: FilterParamRange, Min: 0.05, Max: 4, Step: 0.05, DefaultVal: "1", Decimals: 2},
		}
	}
	return nil
}
