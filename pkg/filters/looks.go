package filters

import (
	"fmt"
	"strings"
)

// Look is a named color response preset.
type Look int

const (
	LookNone Look = iota
	LookK1
	LookK2
	LookK6
	LookKDynamic
	LookFridge
	LookBreeze
	LookOrchid
	LookChest
	LookFront
	LookFixie
	LookX400
	LookBW
	LookAD1920
	LookLenin
	LookQuozi
	LookPola669
	LookPolaSX
	LookFood
	LookGlam
	LookCelsius
	LookTexas
	LookLomo
	LookGoblin
	LookSin
	LookMellow
	LookSoft
	LookBlues
	LookElder
	LookSunset
	LookEvening
	LookSteel
	LookSeventies
	LookHighContrast
	LookBlueShadows
	LookHighcarb
	LookEighties
	LookColorful
	LookLomo100
	LookPro400
	LookTwilight
	LookCottonCandy
	LookPale
	LookSettled
	LookCool
	LookLitho
	LookAncient
	LookPitched
	LookLucid
	LookCreamy
	LookKeen
	LookTender
	LookBleached
	LookBleachedBlue
	LookFall
	LookWinter
	LookSepiaHigh
	LookSummer
	LookClassic
	LookNoGreen
	LookNeat
	LookPlate

	lookCount
)

// RGB holds one value per color channel.
type RGB [3]float64

// LookParams are the fixed constants of a look. Each channel v in [0,1] is
// mapped through lift/gain, then gamma, then contrast around mid gray;
// saturation and the optional monochrome tint are applied per pixel.
type LookParams struct {
	Lift       RGB
	Gamma      RGB
	Gain       RGB
	Contrast   float64
	Saturation float64
	Mono       bool
	Tint       RGB
}

type lookDef struct {
	name   string
	params LookParams
}

func grade(lift, gamma, gain RGB, contrast, saturation float64) LookParams {
	return LookParams{Lift: lift, Gamma: gamma, Gain: gain, Contrast: contrast, Saturation: saturation}
}

func mono(tint RGB, contrast float64) LookParams {
	return LookParams{Gamma: RGB{1, 1, 1}, Gain: RGB{1, 1, 1}, Contrast: contrast, Saturation: 0, Mono: true, Tint: tint}
}

var (
	flat    = RGB{0, 0, 0}
	unit    = RGB{1, 1, 1}
	neutral = RGB{1, 1, 1}
)

var lookTable = [lookCount]lookDef{
	LookNone:         {"none", grade(flat, unit, unit, 1, 1)},
	LookK1:           {"K1", grade(RGB{0.02, 0.01, 0}, RGB{1.05, 1, 0.95}, RGB{1, 0.98, 0.92}, 1.05, 1.1)},
	LookK2:           {"K2", grade(RGB{0.04, 0.03, 0.01}, RGB{1.1, 1.05, 0.95}, RGB{0.98, 0.96, 0.9}, 1.0, 0.95)},
	LookK6:           {"K6", grade(RGB{0, 0.02, 0.04}, RGB{0.95, 1, 1.05}, RGB{0.96, 0.98, 1}, 1.1, 0.9)},
	LookKDynamic:     {"KDynamic", grade(flat, RGB{1.1, 1.1, 1.1}, unit, 1.25, 1.2)},
	LookFridge:       {"Fridge", grade(RGB{0, 0.03, 0.06}, RGB{0.95, 1, 1.1}, RGB{0.92, 0.98, 1}, 1.05, 0.85)},
	LookBreeze:       {"Breeze", grade(RGB{0.05, 0.06, 0.06}, RGB{1.05, 1.1, 1.1}, RGB{0.98, 1, 1}, 0.9, 0.9)},
	LookOrchid:       {"Orchid", grade(RGB{0.06, 0.02, 0.08}, RGB{1.05, 0.95, 1.05}, RGB{1, 0.94, 1}, 0.95, 1.0)},
	LookChest:        {"Chest", grade(RGB{0.06, 0.04, 0.02}, RGB{1, 0.95, 0.9}, RGB{1, 0.95, 0.85}, 1.1, 0.8)},
	LookFront:        {"Front", grade(RGB{0.04, 0.04, 0.02}, RGB{1.1, 1.05, 1}, RGB{1, 1, 0.95}, 0.95, 1.05)},
	LookFixie:        {"Fixie", grade(RGB{0, 0, 0.03}, RGB{1, 1.05, 0.95}, RGB{1, 1, 0.9}, 1.2, 1.15)},
	LookX400:         {"X400", mono(neutral, 1.1)},
	LookBW:           {"BW", mono(neutral, 1.0)},
	LookAD1920:       {"AD1920", mono(RGB{1, 0.9, 0.72}, 0.9)},
	LookLenin:        {"Lenin", mono(RGB{0.95, 0.97, 1}, 1.3)},
	LookQuozi:        {"Quozi", grade(RGB{0.08, 0.06, 0.02}, RGB{1.1, 1.05, 0.95}, RGB{0.98, 0.95, 0.88}, 0.85, 0.75)},
	LookPola669:      {"Pola669", grade(RGB{0.04, 0.06, 0.03}, RGB{1.05, 1.1, 1}, RGB{0.95, 1, 0.9}, 0.95, 0.8)},
	LookPolaSX:       {"PolaSX", grade(RGB{0.06, 0.05, 0.04}, RGB{1.1, 1.05, 1}, RGB{0.97, 0.95, 0.9}, 0.9, 0.85)},
	LookFood:         {"Food", grade(RGB{0.02, 0, 0}, RGB{1.05, 1.05, 0.95}, RGB{1, 0.98, 0.9}, 1.1, 1.25)},
	LookGlam:         {"Glam", grade(RGB{0.03, 0.02, 0.03}, RGB{1.1, 1, 1}, RGB{1, 0.95, 0.95}, 1.15, 0.9)},
	LookCelsius:      {"Celsius", grade(RGB{0.05, 0.02, 0}, RGB{1.1, 1, 0.9}, RGB{1, 0.92, 0.8}, 1.05, 1.1)},
	LookTexas:        {"Texas", grade(RGB{0.06, 0.04, 0}, RGB{1.05, 1, 0.85}, RGB{1, 0.95, 0.8}, 1.0, 0.9)},
	LookLomo:         {"Lomo", grade(flat, RGB{0.95, 1, 1.05}, unit, 1.35, 1.3)},
	LookGoblin:       {"Goblin", grade(RGB{0, 0.04, 0}, RGB{0.9, 1.1, 0.9}, RGB{0.92, 1, 0.9}, 1.2, 0.8)},
	LookSin:          {"Sin", grade(RGB{0.02, 0, 0}, RGB{0.95, 0.9, 0.9}, RGB{1, 0.9, 0.9}, 1.4, 0.6)},
	LookMellow:       {"Mellow", grade(RGB{0.05, 0.05, 0.04}, RGB{1.05, 1.05, 1}, RGB{0.96, 0.96, 0.94}, 0.85, 0.9)},
	LookSoft:         {"Soft", grade(RGB{0.06, 0.06, 0.06}, RGB{1.1, 1.1, 1.1}, RGB{0.97, 0.97, 0.97}, 0.8, 0.95)},
	LookBlues:        {"Blues", grade(RGB{0, 0.02, 0.06}, RGB{0.95, 1, 1.1}, RGB{0.9, 0.95, 1}, 1.05, 0.9)},
	LookElder:        {"Elder", grade(RGB{0.06, 0.05, 0.03}, RGB{1, 0.98, 0.92}, RGB{0.94, 0.9, 0.82}, 0.95, 0.7)},
	LookSunset:       {"Sunset", grade(RGB{0.04, 0.01, 0}, RGB{1.15, 1, 0.9}, RGB{1, 0.9, 0.78}, 1.05, 1.15)},
	LookEvening:      {"Evening", grade(RGB{0.03, 0.01, 0.04}, RGB{1.05, 0.95, 1}, RGB{0.95, 0.88, 0.9}, 1.1, 0.95)},
	LookSteel:        {"Steel", grade(RGB{0, 0.02, 0.04}, RGB{0.95, 1, 1.05}, RGB{0.92, 0.96, 1}, 1.15, 0.5)},
	LookSeventies:    {"Seventies", grade(RGB{0.08, 0.05, 0}, RGB{1.1, 1.05, 0.9}, RGB{0.98, 0.92, 0.78}, 0.9, 0.85)},
	LookHighContrast: {"HighContrast", grade(flat, unit, unit, 1.5, 1.05)},
	LookBlueShadows:  {"BlueShadows", grade(RGB{0, 0.02, 0.1}, unit, unit, 1.05, 1)},
	LookHighcarb:     {"Highcarb", grade(RGB{0, 0, 0}, RGB{0.9, 0.9, 0.9}, RGB{1, 1, 1}, 1.3, 1.2)},
	LookEighties:     {"Eighties", grade(RGB{0.04, 0, 0.06}, RGB{1.05, 0.95, 1.05}, RGB{1, 0.92, 1}, 1.15, 1.2)},
	LookColorful:     {"Colorful", grade(flat, unit, unit, 1.1, 1.5)},
	LookLomo100:      {"Lomo100", grade(RGB{0, 0.01, 0.02}, RGB{0.95, 1, 1.05}, RGB{1, 1, 0.95}, 1.3, 1.2)},
	LookPro400:       {"Pro400", grade(RGB{0.02, 0.03, 0.03}, RGB{1, 1.05, 1.05}, RGB{0.98, 1, 0.98}, 1.05, 0.95)},
	LookTwilight:     {"Twilight", grade(RGB{0.02, 0.02, 0.08}, RGB{0.95, 0.95, 1.1}, RGB{0.9, 0.9, 1}, 1.1, 0.85)},
	LookCottonCandy:  {"CottonCandy", grade(RGB{0.08, 0.04, 0.08}, RGB{1.1, 1, 1.1}, RGB{1, 0.95, 1}, 0.85, 0.9)},
	LookPale:         {"Pale", grade(RGB{0.1, 0.1, 0.1}, RGB{1.1, 1.1, 1.1}, RGB{0.95, 0.95, 0.95}, 0.8, 0.6)},
	LookSettled:      {"Settled", grade(RGB{0.04, 0.04, 0.04}, RGB{1, 1, 0.98}, RGB{0.95, 0.95, 0.92}, 0.9, 0.75)},
	LookCool:         {"Cool", grade(RGB{0, 0.01, 0.03}, RGB{0.97, 1, 1.05}, RGB{0.94, 0.98, 1}, 1.0, 1.0)},
	LookLitho:        {"Litho", mono(RGB{1, 0.98, 0.94}, 1.4)},
	LookAncient:      {"Ancient", grade(RGB{0.1, 0.07, 0.03}, RGB{1.05, 1, 0.9}, RGB{0.92, 0.86, 0.74}, 0.9, 0.5)},
	LookPitched:      {"Pitched", grade(RGB{0.02, 0.02, 0}, RGB{1.05, 1.05, 0.95}, RGB{1, 1, 0.92}, 1.25, 1.1)},
	LookLucid:        {"Lucid", grade(RGB{0.02, 0.02, 0.02}, RGB{1.1, 1.1, 1.1}, unit, 1.05, 1.1)},
	LookCreamy:       {"Creamy", grade(RGB{0.06, 0.05, 0.03}, RGB{1.1, 1.08, 1}, RGB{1, 0.97, 0.9}, 0.9, 0.85)},
	LookKeen:         {"Keen", grade(RGB{0, 0, 0}, RGB{1, 1.02, 1}, unit, 1.2, 1.15)},
	LookTender:       {"Tender", grade(RGB{0.06, 0.04, 0.04}, RGB{1.08, 1.04, 1.02}, RGB{1, 0.96, 0.94}, 0.9, 0.85)},
	LookBleached:     {"Bleached", grade(RGB{0.05, 0.05, 0.05}, RGB{1.15, 1.15, 1.15}, unit, 1.1, 0.45)},
	LookBleachedBlue: {"BleachedBlue", grade(RGB{0.04, 0.05, 0.08}, RGB{1.1, 1.12, 1.2}, RGB{0.95, 0.98, 1}, 1.1, 0.45)},
	LookFall:         {"Fall", grade(RGB{0.04, 0.02, 0}, RGB{1.1, 1, 0.85}, RGB{1, 0.92, 0.8}, 1.05, 1.05)},
	LookWinter:       {"Winter", grade(RGB{0.02, 0.04, 0.08}, RGB{1, 1.05, 1.15}, RGB{0.94, 0.98, 1}, 1.0, 0.7)},
	LookSepiaHigh:    {"SepiaHigh", mono(RGB{1, 0.85, 0.65}, 1.3)},
	LookSummer:       {"Summer", grade(RGB{0.03, 0.02, 0}, RGB{1.1, 1.05, 0.95}, RGB{1, 0.98, 0.9}, 1.05, 1.25)},
	LookClassic:      {"Classic", grade(RGB{0.03, 0.03, 0.02}, RGB{1.02, 1, 0.96}, RGB{0.98, 0.96, 0.92}, 1.1, 0.8)},
	LookNoGreen:      {"NoGreen", grade(flat, RGB{1, 0.8, 1}, RGB{1, 0.85, 1}, 1.0, 1.0)},
	LookNeat:         {"Neat", grade(RGB{0.01, 0.01, 0.01}, RGB{1.05, 1.05, 1.05}, unit, 1.1, 1.05)},
	LookPlate:        {"Plate", grade(RGB{0.05, 0.05, 0.04}, RGB{1, 1, 0.98}, RGB{0.9, 0.9, 0.86}, 1.2, 0.55)},
}

func (l Look) String() string {
	if l < 0 || l >= lookCount {
		return fmt.Sprintf("Look(%d)", int(l))
	}
	return lookTable[l].name
}

// Params returns the constants of the look.
func (l Look) Params() LookParams {
	if l < 0 || l >= lookCount {
		return lookTable[LookNone].params
	}
	return lookTable[l].params
}

// Looks returns every look in declaration order, none first.
func Looks() []Look {
	out := make([]Look, 0, lookCount)
	for l := LookNone; l < lookCount; l++ {
		out = append(out, l)
	}
	return out
}

// ParseLook resolves a look by its name, case-insensitively.
func ParseLook(name string) (Look, error) {
	if name == "" {
		return LookNone, nil
	}
	for l := LookNone; l < lookCount; l++ {
		if strings.EqualFold(lookTable[l].name, name) {
			return l, nil
		}
	}
	return LookNone, fmt.Errorf("unknown look %q", name)
}
