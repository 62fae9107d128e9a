// Package virtual is a synthetic capture backend. It produces test-pattern
// frames and a sine tone, and lets callers inject failures.
package virtual

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"thirdcoast.systems/camerakit/pkg/capture"
)

const (
	DefaultWidth      = 640
	DefaultHeight     = 480
	DefaultFrameRate  = 30
	DefaultSampleRate = 48000
	DefaultChannels   = 1
	DefaultToneHz     = 440

	audioBlock = 20 * time.Millisecond
)

// ErrNotRunning is returned by CaptureStill on a stopped session.
var ErrNotRunning = errors.New("virtual: session not running")

// Option configures Hardware.
type Option interface {
	apply(*Hardware)
}

type OptionFunc func(*Hardware)

func (f OptionFunc) apply(h *Hardware) { f(h) }

// WithFrameSize sets the video frame size. Stills are twice as large.
func WithFrameSize(w, h int) Option {
	return OptionFunc(func(hw *Hardware) { hw.width, hw.height = w, h })
}

// WithFrameRate sets the generator rate. Zero disables the generators;
// frames and audio are then delivered only through Push.
func WithFrameRate(fps int) Option {
	return OptionFunc(func(hw *Hardware) { hw.fps = fps })
}

// WithoutFrontCamera leaves only the back camera.
func WithoutFrontCamera() Option {
	return OptionFunc(func(hw *Hardware) { hw.noFront = true })
}

// Denied makes Authorize fail for kind.
func Denied(kind capture.MediaKind) Option {
	return OptionFunc(func(hw *Hardware) { hw.denied[kind] = true })
}

// Hardware is a virtual device set.
type Hardware struct {
	mu       sync.Mutex
	width    int
	height   int
	fps      int
	noFront  bool
	denied   map[capture.MediaKind]bool
	devices  []*Device
	sessions []*Session
}

// New returns hardware with a back camera, a front camera and a microphone.
func New(opts ...Option) *Hardware {
	hw := &Hardware{
		width:  DefaultWidth,
		height: DefaultHeight,
		fps:    DefaultFrameRate,
		denied: make(map[capture.MediaKind]bool),
	}
	for _, opt := range opts {
		opt.apply(hw)
	}

	cameraModes := capture.DeviceInfo{
		Kind:                   capture.MediaVideo,
		FocusModes:             []capture.FocusMode{capture.FocusLocked, capture.FocusAuto, capture.FocusContinuous},
		ExposureModes:          []capture.ExposureMode{capture.FocusLocked, capture.FocusAuto, capture.FocusContinuous},
		FocusPointSupported:    true,
		ExposurePointSupported: true,
	}

	back := cameraModes
	back.ID, back.Name, back.Position = "virtual-back", "Virtual Back Camera", capture.PositionBack
	back.HasFlash, back.HasTorch = true, true
	back.FlashModes = []capture.FlashMode{capture.FlashOff, capture.FlashOn, capture.FlashAuto}
	back.TorchModes = []capture.TorchMode{capture.FlashOff, capture.FlashOn, capture.FlashAuto}
	hw.devices = append(hw.devices, newDevice(back))

	if !hw.noFront {
		front := cameraModes
		front.ID, front.Name, front.Position = "virtual-front", "Virtual Front Camera", capture.PositionFront
		front.FlashModes = []capture.FlashMode{capture.FlashOff}
		front.TorchModes = []capture.TorchMode{capture.FlashOff}
		front.FocusModes = []capture.FocusMode{capture.FocusLocked}
		front.FocusPointSupported = false
		hw.devices = append(hw.devices, newDevice(front))
	}

	hw.devices = append(hw.devices, newDevice(capture.DeviceInfo{
		ID:   "virtual-mic",
		Name: "Virtual Microphone",
		Kind: capture.MediaAudio,
	}))
	return hw
}

// SetDenied changes the authorization answer for kind.
func (hw *Hardware) SetDenied(kind capture.MediaKind, denied bool) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.denied[kind] = denied
}

func (hw *Hardware) Authorize(ctx context.Context, kind capture.MediaKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.denied[kind] {
		return fmt.Errorf("%s: %w", kind, capture.ErrNotAuthorized)
	}
	return nil
}

func (hw *Hardware) Devices(kind capture.MediaKind) []capture.Device {
	var out []capture.Device
	for _, d := range hw.devices {
		if d.info.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func (hw *Hardware) NewSession() capture.Session {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	s := &Session{
		width:  hw.width,
		height: hw.height,
		fps:    hw.fps,
		preset: capture.PresetHigh,
		base:   time.Now(),
	}
	hw.sessions = append(hw.sessions, s)
	return s
}

// LastSession returns the most recently created session, or nil.
func (hw *Hardware) LastSession() *Session {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if len(hw.sessions) == 0 {
		return nil
	}
	return hw.sessions[len(hw.sessions)-1]
}

// Device is a virtual camera or microphone.
type Device struct {
	mu    sync.Mutex
	info  capture.DeviceInfo
	state capture.DeviceState
}

func newDevice(info capture.DeviceInfo) *Device {
	return &Device{info: info}
}

func (d *Device) Info() capture.DeviceInfo { return d.info }

func (d *Device) State() capture.DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Device) Configure(s capture.DeviceState) error {
	if err := capture.ValidateState(d.info, s); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	return nil
}

// Session is a virtual capture session.
type Session struct {
	mu      sync.Mutex
	width   int
	height  int
	fps     int
	preset  capture.Preset
	base    time.Time
	inputs  []capture.Device
	depth   int
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	seq     uint64

	onFrame func(capture.Frame)
	onAudio func(capture.AudioSample)
	onError func(error)
	onArea  func(capture.Device)

	addInputErr error
	stillErr    error
	stills      int
}

func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth++
}

// Commit ends a configuration block. The graph must hold at most one
// input per media kind.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth > 0 {
		s.depth--
	}
	counts := map[capture.MediaKind]int{}
	for _, in := range s.inputs {
		counts[in.Info().Kind]++
	}
	for kind, n := range counts {
		if n > 1 {
			return fmt.Errorf("virtual: %d %s inputs", n, kind)
		}
	}
	return nil
}

func (s *Session) SetPreset(p capture.Preset) error {
	switch p {
	case capture.PresetPhoto, capture.PresetHigh:
	default:
		return fmt.Errorf("virtual: unknown preset %q", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preset = p
	return nil
}

// Preset returns the active preset.
func (s *Session) Preset() capture.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preset
}

// FailNextAddInput makes the next AddInput return err.
func (s *Session) FailNextAddInput(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addInputErr = err
}

func (s *Session) AddInput(d capture.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addInputErr; err != nil {
		s.addInputErr = nil
		return err
	}
	for _, in := range s.inputs {
		if in == d {
			return fmt.Errorf("virtual: %s already attached", d.Info().ID)
		}
		if in.Info().Kind == d.Info().Kind {
			return fmt.Errorf("virtual: cannot add %s, a %s input is attached", d.Info().ID, d.Info().Kind)
		}
	}
	s.inputs = append(s.inputs, d)
	return nil
}

func (s *Session) RemoveInput(d capture.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, in := range s.inputs {
		if in == d {
			s.inputs = append(s.inputs[:i], s.inputs[i+1:]...)
			return
		}
	}
}

func (s *Session) Inputs() []capture.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capture.Device(nil), s.inputs...)
}

func (s *Session) SetFrameHandler(fn func(capture.Frame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = fn
}

func (s *Session) SetAudioHandler(fn func(capture.AudioSample)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAudio = fn
}

func (s *Session) SetRuntimeErrorHandler(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

func (s *Session) SetSubjectAreaChangeHandler(fn func(capture.Device)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onArea = fn
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	if s.fps <= 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.generate(runCtx, s.done)
	return nil
}

func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// InjectRuntimeError stops the session and reports err to the runtime
// error handler, the way a media services reset would.
func (s *Session) InjectRuntimeError(err error) {
	s.Stop()
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// ChangeSubjectArea simulates a scene change in front of the camera. Video
// inputs that monitor subject area changes are reported to the handler. It
// returns how many inputs were reported.
func (s *Session) ChangeSubjectArea() int {
	s.mu.Lock()
	fn := s.onArea
	var monitored []capture.Device
	for _, d := range s.inputs {
		if d.Info().Kind == capture.MediaVideo && d.State().SubjectAreaChangeMonitoring {
			monitored = append(monitored, d)
		}
	}
	s.mu.Unlock()

	if fn == nil {
		return 0
	}
	for _, d := range monitored {
		fn(d)
	}
	return len(monitored)
}

// FailNextStill makes the next CaptureStill return err.
func (s *Session) FailNextStill(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stillErr = err
}

// Stills returns how many stills were captured.
func (s *Session) Stills() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stills
}

func (s *Session) CaptureStill(ctx context.Context, o capture.Orientation, flash capture.FlashMode) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil, ErrNotRunning
	}
	if err := s.stillErr; err != nil {
		s.stillErr = nil
		return nil, err
	}
	s.stills++

	img := pattern(s.width*2, s.height*2, s.seq, s.positionLocked())
	if flash == capture.FlashOn {
		img = imaging.AdjustBrightness(img, 20)
	}
	switch o {
	case capture.OrientationPortrait:
		return imaging.Rotate270(img), nil
	case capture.OrientationPortraitUpsideDown:
		return imaging.Rotate90(img), nil
	case capture.OrientationLandscapeRight:
		return imaging.Rotate180(img), nil
	}
	return img, nil
}

// Push delivers a frame through the frame handler as if the generator had
// produced it. PTS is taken as given.
func (s *Session) Push(img image.Image, pts time.Duration) {
	s.mu.Lock()
	s.seq++
	fn := s.onFrame
	f := capture.Frame{Seq: s.seq, PTS: pts, Image: img}
	s.mu.Unlock()
	if fn != nil {
		fn(f)
	}
}

// PushAudio delivers an audio block through the audio handler.
func (s *Session) PushAudio(sample capture.AudioSample) {
	s.mu.Lock()
	fn := s.onAudio
	s.mu.Unlock()
	if fn != nil {
		fn(sample)
	}
}

func (s *Session) positionLocked() capture.Position {
	for _, in := range s.inputs {
		if info := in.Info(); info.Kind == capture.MediaVideo {
			return info.Position
		}
	}
	return capture.PositionUnspecified
}

func (s *Session) hasAudioLocked() bool {
	for _, in := range s.inputs {
		if in.Info().Kind == capture.MediaAudio {
			return true
		}
	}
	return false
}

func (s *Session) generate(ctx context.Context, done chan struct{}) {
	defer close(done)

	frameTicker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer frameTicker.Stop()
	audioTicker := time.NewTicker(audioBlock)
	defer audioTicker.Stop()

	var phase float64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-frameTicker.C:
			s.mu.Lock()
			s.seq++
			seq, pos, fn := s.seq, s.positionLocked(), s.onFrame
			s.mu.Unlock()
			if fn == nil || pos == capture.PositionUnspecified {
				continue
			}
			fn(capture.Frame{
				Seq:   seq,
				PTS:   now.Sub(s.base),
				Image: pattern(s.width, s.height, seq, pos),
			})
		case now := <-audioTicker.C:
			s.mu.Lock()
			hasAudio, fn := s.hasAudioLocked(), s.onAudio
			s.mu.Unlock()
			if fn == nil || !hasAudio {
				continue
			}
			var sample capture.AudioSample
			sample, phase = tone(now.Sub(s.base), phase)
			fn(sample)
		}
	}
}

// pattern draws vertical color bars with a bar that moves one step per
// frame. The front camera's bars run in reverse.
func pattern(w, h int, seq uint64, pos capture.Position) *image.NRGBA {
	bars := []color.NRGBA{
		{192, 192, 192, 255},
		{192, 192, 0, 255},
		{0, 192, 192, 255},
		{0, 192, 0, 255},
		{192, 0, 192, 255},
		{192, 0, 0, 255},
		{0, 0, 192, 255},
	}
	if pos == capture.PositionFront {
		for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
			bars[i], bars[j] = bars[j], bars[i]
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	marker := int(seq) % max(w, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := bars[x*len(bars)/w]
			if x == marker {
				c = color.NRGBA{255, 255, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func tone(pts time.Duration, phase float64) (capture.AudioSample, float64) {
	n := int(int64(DefaultSampleRate) * int64(audioBlock) / int64(time.Second))
	data := make([]int16, n*DefaultChannels)
	step := 2 * math.Pi * DefaultToneHz / DefaultSampleRate
	for i := 0; i < n; i++ {
		v := int16(math.Sin(phase) * 0.2 * math.MaxInt16)
		for c := 0; c < DefaultChannels; c++ {
			data[i*DefaultChannels+c] = v
		}
		phase = math.Mod(phase+step, 2*math.Pi)
	}
	return capture.AudioSample{
		PTS:      pts,
		Rate:     DefaultSampleRate,
		Channels: DefaultChannels,
		Data:     data,
	}, phase
}
