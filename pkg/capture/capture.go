// Package capture describes the camera and microphone hardware boundary.
// Implementations live elsewhere; package virtual provides a synthetic one.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"
)

// ErrNotAuthorized is returned when access to a media kind is denied.
var ErrNotAuthorized = errors.New("capture: not authorized")

// ErrUnsupported is returned by Device.Configure for modes the device lacks.
var ErrUnsupported = errors.New("capture: unsupported mode")

// Position is the physical side of a camera.
type Position int

const (
	PositionUnspecified Position = iota
	PositionBack
	PositionFront
)

func (p Position) String() string {
	switch p {
	case PositionBack:
		return "back"
	case PositionFront:
		return "front"
	default:
		return "unspecified"
	}
}

// Opposite returns the other side. Unspecified maps to back.
func (p Position) Opposite() Position {
	if p == PositionBack {
		return PositionFront
	}
	return PositionBack
}

func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "back":
		return PositionBack, nil
	case "front":
		return PositionFront, nil
	case "", "unspecified":
		return PositionUnspecified, nil
	}
	return PositionUnspecified, fmt.Errorf("unknown camera position %q", s)
}

// MediaKind selects video or audio hardware.
type MediaKind int

const (
	MediaVideo MediaKind = iota
	MediaAudio
)

func (k MediaKind) String() string {
	if k == MediaAudio {
		return "audio"
	}
	return "video"
}

// FlashMode also serves as the torch mode.
type FlashMode int

const (
	FlashOff FlashMode = iota
	FlashOn
	FlashAuto
)

// TorchMode shares values with FlashMode.
type TorchMode = FlashMode

func (m FlashMode) String() string {
	switch m {
	case FlashOn:
		return "on"
	case FlashAuto:
		return "auto"
	default:
		return "off"
	}
}

// FocusMode also serves as the exposure mode.
type FocusMode int

const (
	FocusLocked FocusMode = iota
	FocusAuto
	FocusContinuous
)

// ExposureMode shares values with FocusMode.
type ExposureMode = FocusMode

func (m FocusMode) String() string {
	switch m {
	case FocusAuto:
		return "auto"
	case FocusContinuous:
		return "continuous"
	default:
		return "locked"
	}
}

// Orientation of the device when a still or recording is taken.
type Orientation int

const (
	OrientationPortrait Orientation = iota
	OrientationPortraitUpsideDown
	OrientationLandscapeLeft
	OrientationLandscapeRight
)

func (o Orientation) String() string {
	switch o {
	case OrientationPortraitUpsideDown:
		return "portrait_upside_down"
	case OrientationLandscapeLeft:
		return "landscape_left"
	case OrientationLandscapeRight:
		return "landscape_right"
	default:
		return "portrait"
	}
}

// Preset names a session quality preset.
type Preset string

const (
	PresetPhoto Preset = "photo"
	PresetHigh  Preset = "high"
)

// Point is a unit-coordinate point of interest.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DeviceInfo is the static description of a device.
type DeviceInfo struct {
	ID       string
	Name     string
	Kind     MediaKind
	Position Position

	HasFlash bool
	HasTorch bool

	FlashModes    []FlashMode
	TorchModes    []TorchMode
	FocusModes    []FocusMode
	ExposureModes []ExposureMode

	FocusPointSupported    bool
	ExposurePointSupported bool
}

// SupportsFlash reports whether m is an available flash mode.
func (i DeviceInfo) SupportsFlash(m FlashMode) bool { return containsMode(i.FlashModes, m) }

// SupportsTorch reports whether m is an available torch mode.
func (i DeviceInfo) SupportsTorch(m TorchMode) bool { return containsMode(i.TorchModes, m) }

// SupportsFocus reports whether m is an available focus mode.
func (i DeviceInfo) SupportsFocus(m FocusMode) bool { return containsMode(i.FocusModes, m) }

// SupportsExposure reports whether m is an available exposure mode.
func (i DeviceInfo) SupportsExposure(m ExposureMode) bool {
	return containsMode(i.ExposureModes, m)
}

func containsMode[T comparable](modes []T, m T) bool {
	for _, v := range modes {
		if v == m {
			return true
		}
	}
	return false
}

// DeviceState is the mutable configuration of a device.
type DeviceState struct {
	FlashMode     FlashMode
	TorchMode     TorchMode
	FocusMode     FocusMode
	ExposureMode  ExposureMode
	FocusPoint    *Point
	ExposurePoint *Point

	SubjectAreaChangeMonitoring bool
}

// Device is a camera or microphone.
type Device interface {
	Info() DeviceInfo
	State() DeviceState
	// Configure applies s under the device's configuration lock. Modes not
	// listed in Info are rejected with ErrUnsupported and leave the state
	// unchanged.
	Configure(s DeviceState) error
}

// ValidateState checks s against info.
func ValidateState(info DeviceInfo, s DeviceState) error {
	if s.FlashMode != FlashOff && !info.SupportsFlash(s.FlashMode) {
		return fmt.Errorf("flash %s: %w", s.FlashMode, ErrUnsupported)
	}
	if s.TorchMode != FlashOff && !info.SupportsTorch(s.TorchMode) {
		return fmt.Errorf("torch %s: %w", s.TorchMode, ErrUnsupported)
	}
	if s.FocusMode != FocusLocked && !info.SupportsFocus(s.FocusMode) {
		return fmt.Errorf("focus %s: %w", s.FocusMode, ErrUnsupported)
	}
	if s.ExposureMode != FocusLocked && !info.SupportsExposure(s.ExposureMode) {
		return fmt.Errorf("exposure %s: %w", s.ExposureMode, ErrUnsupported)
	}
	if s.FocusPoint != nil && !info.FocusPointSupported {
		return fmt.Errorf("focus point: %w", ErrUnsupported)
	}
	if s.ExposurePoint != nil && !info.ExposurePointSupported {
		return fmt.Errorf("exposure point: %w", ErrUnsupported)
	}
	return nil
}

// Frame is one video frame. PTS is the presentation time on the session's
// clock, which is monotonic but not zero-based.
type Frame struct {
	Seq   uint64
	PTS   time.Duration
	Image image.Image
}

// AudioSample is a block of interleaved signed 16-bit PCM.
type AudioSample struct {
	PTS      time.Duration
	Rate     int
	Channels int
	Data     []int16
}

// Duration returns the playback length of the block.
func (s AudioSample) Duration() time.Duration {
	if s.Rate <= 0 || s.Channels <= 0 {
		return 0
	}
	frames := len(s.Data) / s.Channels
	return time.Duration(frames) * time.Second / time.Duration(s.Rate)
}

// Session is a running capture graph.
//
// Configuration changes are bracketed by Begin and Commit. Handlers are
// called from the session's own goroutine and must not block.
type Session interface {
	Begin()
	Commit() error
	SetPreset(p Preset) error
	AddInput(d Device) error
	RemoveInput(d Device)
	Inputs() []Device

	Start(ctx context.Context) error
	Stop()
	Running() bool

	SetFrameHandler(fn func(Frame))
	SetAudioHandler(fn func(AudioSample))
	SetRuntimeErrorHandler(fn func(error))
	// SetSubjectAreaChangeHandler receives a video input whose scene
	// changed substantially. Only inputs with SubjectAreaChangeMonitoring
	// set report changes.
	SetSubjectAreaChangeHandler(fn func(Device))

	CaptureStill(ctx context.Context, o Orientation, flash FlashMode) (image.Image, error)
}

// Hardware enumerates devices and grants access to them.
type Hardware interface {
	// Authorize asks for access to kind and returns ErrNotAuthorized when it
	// is denied.
	Authorize(ctx context.Context, kind MediaKind) error
	Devices(kind MediaKind) []Device
	NewSession() Session
}

// MotionSource reports the latest acceleration in device coordinates.
type MotionSource interface {
	Acceleration() (x, y, z float64, ok bool)
}

// DeviceWithPosition returns the first video device at pos.
func DeviceWithPosition(hw Hardware, pos Position) (Device, bool) {
	for _, d := range hw.Devices(MediaVideo) {
		if d.Info().Position == pos {
			return d, true
		}
	}
	return nil, false
}
