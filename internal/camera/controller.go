// Package camera owns a capture session: device selection, flash and
// torch, focus, still capture, the live effect, the preview surface and
// video recording.
//
// All session state lives on one worker goroutine. Public methods post a
// closure to the worker and wait for it, so callers never touch the
// session directly. Events are handed to a second goroutine and delivered
// to listeners in order.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"thirdcoast.systems/camerakit/internal/camera/preview"
	"thirdcoast.systems/camerakit/pkg/capture"
	"thirdcoast.systems/camerakit/pkg/filters"
	"thirdcoast.systems/camerakit/pkg/processor"
	"thirdcoast.systems/camerakit/pkg/recorder"
	"thirdcoast.systems/camerakit/pkg/utils/crops"
)

const (
	DefaultTimerInterval = 250 * time.Millisecond
	DefaultAudioRate     = 48000
	DefaultAudioChannels = 1

	audioBuffer = 64
	eventBuffer = 256
)

var (
	ErrNotSetUp   = errors.New("camera: session not set up")
	ErrNotRunning = errors.New("camera: session not running")
	ErrBusy       = errors.New("camera: reconfiguration in progress")
	ErrRecording  = errors.New("camera: not allowed while recording")
	ErrNoDevice   = errors.New("camera: no video device")
	ErrClosed     = errors.New("camera: controller closed")
)

// State is the controller lifecycle.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateRunning
	StateReconfiguring
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateReconfiguring:
		return "reconfiguring"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Mode is the capture mode.
type Mode int

const (
	ModePhoto Mode = iota
	ModeVideo
)

func (m Mode) String() string {
	if m == ModeVideo {
		return "video"
	}
	return "photo"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "photo":
		return ModePhoto, nil
	case "video":
		return ModeVideo, nil
	}
	return ModePhoto, fmt.Errorf("unknown recording mode %q", s)
}

func (m Mode) preset() capture.Preset {
	if m == ModeVideo {
		return capture.PresetHigh
	}
	return capture.PresetPhoto
}

// Config holds the initial session settings.
type Config struct {
	Position       capture.Position
	Mode           Mode
	SquareMode     bool
	Audio          bool
	AudioFormat    recorder.AudioFormat
	FrameRate      int
	MaxVideoLength time.Duration
	TimerInterval  time.Duration
}

// Metrics receives controller counters. internal/metrics implements it.
type Metrics interface {
	FrameProcessed()
	FrameDropped()
	RecordingFinished(result string)
	SessionRestarted()
}

type noopMetrics struct{}

func (noopMetrics) FrameProcessed()          {}
func (noopMetrics) FrameDropped()            {}
func (noopMetrics) RecordingFinished(string) {}
func (noopMetrics) SessionRestarted()        {}

// Option configures a Controller.
type Option func(*Controller)

func WithMotion(m capture.MotionSource) Option {
	return func(c *Controller) { c.motion = m }
}

func WithRecorder(r *recorder.Recorder) Option {
	return func(c *Controller) { c.rec = r }
}

func WithProcessor(p *processor.Processor) Option {
	return func(c *Controller) { c.proc = p }
}

func WithMetrics(m Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Status is a snapshot of the controller for display.
type Status struct {
	State      string  `json:"state"`
	Mode       string  `json:"mode"`
	Position   string  `json:"position"`
	Flash      string  `json:"flash"`
	Torch      string  `json:"torch"`
	SquareMode bool    `json:"square_mode"`
	Recording  bool    `json:"recording"`
	Elapsed    float64 `json:"elapsed"`
	LiveEffect string  `json:"live_effect,omitempty"`
	Audio      bool    `json:"audio"`
}

// Controller drives one capture session.
type Controller struct {
	hw      capture.Hardware
	cfg     Config
	motion  capture.MotionSource
	rec     *recorder.Recorder
	proc    *processor.Processor
	metrics Metrics

	jobs   chan func()
	frames chan capture.Frame
	audio  chan capture.AudioSample
	quit   chan struct{}
	wg     sync.WaitGroup

	eventsMu     sync.Mutex
	events       chan Event
	eventsClosed bool

	listenersMu sync.Mutex
	listeners   map[int]func(Event)
	nextID      int

	statusMu sync.Mutex
	status   Status

	closeOnce sync.Once

	// Owned by the worker goroutine.
	state      State
	setupDone  bool
	session    capture.Session
	videoInput capture.Device
	audioInput capture.Device
	surface    *preview.Surface
	liveEffect filters.Stage
	mode       Mode
	square     bool
	flash      capture.FlashMode
	torch      capture.TorchMode
	recording  *recording
}

type recording struct {
	job     *recorder.Job
	started time.Time
	ticker  *time.Ticker
}

// New starts the controller goroutines. Call Close to release them.
func New(hw capture.Hardware, cfg Config, opts ...Option) *Controller {
	if cfg.TimerInterval <= 0 {
		cfg.TimerInterval = DefaultTimerInterval
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = recorder.DefaultFrameRate
	}
	if cfg.AudioFormat.Rate <= 0 {
		cfg.AudioFormat.Rate = DefaultAudioRate
	}
	if cfg.AudioFormat.Channels <= 0 {
		cfg.AudioFormat.Channels = DefaultAudioChannels
	}

	c := &Controller{
		hw:        hw,
		cfg:       cfg,
		metrics:   noopMetrics{},
		jobs:      make(chan func()),
		frames:    make(chan capture.Frame, 1),
		audio:     make(chan capture.AudioSample, audioBuffer),
		quit:      make(chan struct{}),
		events:    make(chan Event, eventBuffer),
		listeners: make(map[int]func(Event)),
		mode:      cfg.Mode,
		square:    cfg.SquareMode,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.proc == nil {
		c.proc = processor.New()
	}
	c.publishStatus()

	c.wg.Add(2)
	go c.work()
	go c.dispatch()
	return c
}

// Subscribe registers fn for every later event. Events arrive on a single
// goroutine, in order. The returned func unregisters.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

// Status returns the latest snapshot.
func (c *Controller) Status() Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}

// Surface returns the preview surface passed to Setup.
func (c *Controller) Surface() *preview.Surface {
	var s *preview.Surface
	_ = c.do(context.Background(), func() error {
		s = c.surface
		return nil
	})
	return s
}

// Close stops recording and the session, then shuts the goroutines down.
func (c *Controller) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		err = c.do(ctx, func() error {
			c.stopRecording()
			if c.session != nil && c.session.Running() {
				c.session.Stop()
			}
			c.state = StateStopped
			return nil
		})
		close(c.quit)

		c.eventsMu.Lock()
		c.eventsClosed = true
		close(c.events)
		c.eventsMu.Unlock()

		c.wg.Wait()
	})
	return err
}

// Setup requests authorization, builds the session with the initial
// device and starts it. Calling it again after success does nothing.
func (c *Controller) Setup(ctx context.Context, surface *preview.Surface) error {
	return c.do(ctx, func() error {
		if c.setupDone {
			return nil
		}
		c.state = StateConfiguring

		if err := c.hw.Authorize(ctx, capture.MediaVideo); err != nil {
			c.state = StateIdle
			c.emit(Event{Type: EventAuthorizationFailed, Kind: capture.MediaVideo, Err: err})
			return err
		}

		device, ok := capture.DeviceWithPosition(c.hw, c.cfg.Position)
		if !ok {
			devices := c.hw.Devices(capture.MediaVideo)
			if len(devices) == 0 {
				c.state = StateIdle
				return ErrNoDevice
			}
			device = devices[0]
		}

		session := c.hw.NewSession()
		session.Begin()
		if err := session.AddInput(device); err != nil {
			session.Commit()
			c.state = StateIdle
			return fmt.Errorf("add video input: %w", err)
		}

		var mic capture.Device
		if c.cfg.Audio {
			mic = c.attachAudio(ctx, session)
		}

		if err := session.SetPreset(c.mode.preset()); err != nil {
			slog.Warn("preset rejected", "preset", c.mode.preset(), "error", err)
		}
		if err := session.Commit(); err != nil {
			c.state = StateIdle
			return fmt.Errorf("commit session: %w", err)
		}

		session.SetFrameHandler(c.onFrame)
		session.SetAudioHandler(c.onAudio)
		session.SetRuntimeErrorHandler(c.onRuntimeError)
		session.SetSubjectAreaChangeHandler(c.onSubjectAreaChange)

		c.session = session
		c.videoInput = device
		c.audioInput = mic
		c.surface = surface
		c.flash, c.torch = capture.FlashOff, capture.FlashOff
		c.configureDevice()

		if err := session.Start(ctx); err != nil {
			c.state = StateStopped
			c.setupDone = true
			return fmt.Errorf("start session: %w", err)
		}
		c.setupDone = true
		c.state = StateRunning

		slog.Info("capture session ready", "device", device.Info().Name,
			"position", device.Info().Position.String(), "mode", c.mode.String(), "audio", mic != nil)
		c.emit(Event{Type: EventSetupComplete, Position: device.Info().Position, Mode: c.mode})
		c.emit(Event{Type: EventSessionStarted})
		return nil
	})
}

func (c *Controller) attachAudio(ctx context.Context, session capture.Session) capture.Device {
	if err := c.hw.Authorize(ctx, capture.MediaAudio); err != nil {
		slog.Warn("microphone not authorized, recording without audio", "error", err)
		c.emit(Event{Type: EventAuthorizationFailed, Kind: capture.MediaAudio, Err: err})
		return nil
	}
	mics := c.hw.Devices(capture.MediaAudio)
	if len(mics) == 0 {
		slog.Warn("no microphone found, recording without audio")
		return nil
	}
	if err := session.AddInput(mics[0]); err != nil {
		slog.Warn("failed to add microphone", "error", err)
		return nil
	}
	return mics[0]
}

// Start resumes a stopped session.
func (c *Controller) Start(ctx context.Context) error {
	return c.do(ctx, func() error {
		if !c.setupDone {
			return ErrNotSetUp
		}
		if c.state == StateRunning || c.state == StateReconfiguring {
			return nil
		}
		if err := c.session.Start(ctx); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		c.state = StateRunning
		c.emit(Event{Type: EventSessionStarted})
		return nil
	})
}

// Stop halts the session. A running recording is finalized first.
func (c *Controller) Stop(ctx context.Context) error {
	return c.do(ctx, func() error {
		if c.state != StateRunning {
			return nil
		}
		c.stopRecording()
		c.session.Stop()
		c.state = StateStopped
		c.emit(Event{Type: EventSessionStopped})
		return nil
	})
}

// SwitchDevicePosition swaps the video input for the camera on the other
// side. If the new device cannot be attached the old one is restored.
func (c *Controller) SwitchDevicePosition(ctx context.Context) (capture.Position, error) {
	var pos capture.Position
	err := c.do(ctx, func() error {
		if err := c.requireConfigurable(); err != nil {
			return err
		}
		current := c.videoInput
		pos = current.Info().Position
		next, ok := capture.DeviceWithPosition(c.hw, pos.Opposite())
		if !ok {
			return fmt.Errorf("%w at position %s", ErrNoDevice, pos.Opposite())
		}

		prev := c.state
		c.state = StateReconfiguring
		defer func() { c.state = prev }()

		c.emit(Event{Type: EventWillSwitchPosition, Position: pos})
		if c.surface != nil {
			c.surface.BeginTransition()
		}

		c.session.Begin()
		c.session.RemoveInput(current)
		if err := c.session.AddInput(next); err != nil {
			slog.Warn("switch camera failed, restoring previous device", "error", err)
			if rerr := c.session.AddInput(current); rerr != nil {
				slog.Error("failed to restore previous device", "error", rerr)
			}
			if cerr := c.session.Commit(); cerr != nil {
				slog.Error("commit after failed switch", "error", cerr)
			}
			c.emit(Event{Type: EventDidSwitchPosition, Position: pos, Err: err})
			return fmt.Errorf("switch camera: %w", err)
		}
		if err := c.session.Commit(); err != nil {
			return fmt.Errorf("commit switch: %w", err)
		}

		c.videoInput = next
		pos = next.Info().Position
		c.configureDevice()
		c.emit(Event{Type: EventDidSwitchPosition, Position: pos})
		return nil
	})
	return pos, err
}

// SwitchRecordingMode changes the preset and carries flash over to torch
// (video) or torch over to flash (photo).
func (c *Controller) SwitchRecordingMode(ctx context.Context, mode Mode) error {
	return c.do(ctx, func() error {
		if err := c.requireConfigurable(); err != nil {
			return err
		}
		if mode == c.mode {
			return nil
		}

		prev := c.state
		c.state = StateReconfiguring
		defer func() { c.state = prev }()

		c.emit(Event{Type: EventWillSwitchMode, Mode: c.mode})

		c.session.Begin()
		if err := c.session.SetPreset(mode.preset()); err != nil {
			c.session.Commit()
			return fmt.Errorf("set preset: %w", err)
		}
		if err := c.session.Commit(); err != nil {
			return fmt.Errorf("commit preset: %w", err)
		}

		if mode == ModePhoto {
			c.flash, c.torch = c.torch, capture.FlashOff
		} else {
			c.torch, c.flash = c.flash, capture.FlashOff
		}
		c.mode = mode
		c.configureDevice()

		c.emit(Event{Type: EventFlashChanged, Flash: c.flash})
		c.emit(Event{Type: EventTorchChanged, Torch: c.torch})
		c.emit(Event{Type: EventDidSwitchMode, Mode: mode})
		return nil
	})
}

// SelectNextFlashMode cycles off, auto (or on when auto is unsupported),
// on, off.
func (c *Controller) SelectNextFlashMode(ctx context.Context) (capture.FlashMode, error) {
	var mode capture.FlashMode
	err := c.do(ctx, func() error {
		if !c.setupDone {
			return ErrNotSetUp
		}
		info := c.videoInput.Info()
		c.flash = nextMode(c.flash, info.SupportsFlash)
		c.configureDevice()
		mode = c.flash
		c.emit(Event{Type: EventFlashChanged, Flash: mode})
		return nil
	})
	return mode, err
}

// SelectNextTorchMode cycles the torch like SelectNextFlashMode.
func (c *Controller) SelectNextTorchMode(ctx context.Context) (capture.TorchMode, error) {
	var mode capture.TorchMode
	err := c.do(ctx, func() error {
		if !c.setupDone {
			return ErrNotSetUp
		}
		info := c.videoInput.Info()
		c.torch = nextMode(c.torch, info.SupportsTorch)
		c.configureDevice()
		mode = c.torch
		c.emit(Event{Type: EventTorchChanged, Torch: mode})
		return nil
	})
	return mode, err
}

func nextMode(m capture.FlashMode, supported func(capture.FlashMode) bool) capture.FlashMode {
	var next capture.FlashMode
	switch m {
	case capture.FlashOff:
		next = capture.FlashAuto
		if !supported(next) {
			next = capture.FlashOn
		}
	case capture.FlashAuto:
		next = capture.FlashOn
	default:
		next = capture.FlashOff
	}
	if next != capture.FlashOff && !supported(next) {
		return capture.FlashOff
	}
	return next
}

// SetFocusPoint focuses at p, continuously when the device allows it.
func (c *Controller) SetFocusPoint(ctx context.Context, p capture.Point) error {
	return c.do(ctx, func() error {
		if !c.setupDone {
			return ErrNotSetUp
		}
		info := c.videoInput.Info()
		if !info.FocusPointSupported {
			return fmt.Errorf("focus point: %w", capture.ErrUnsupported)
		}
		st := c.videoInput.State()
		st.FocusPoint = clampPoint(p)
		st.FocusMode = pickMode(info.SupportsFocus)
		st.SubjectAreaChangeMonitoring = true
		return c.videoInput.Configure(st)
	})
}

// SetExposurePoint meters at p, continuously when the device allows it.
func (c *Controller) SetExposurePoint(ctx context.Context, p capture.Point) error {
	return c.do(ctx, func() error {
		if !c.setupDone {
			return ErrNotSetUp
		}
		info := c.videoInput.Info()
		if !info.ExposurePointSupported {
			return fmt.Errorf("exposure point: %w", capture.ErrUnsupported)
		}
		st := c.videoInput.State()
		st.ExposurePoint = clampPoint(p)
		st.ExposureMode = pickMode(info.SupportsExposure)
		st.SubjectAreaChangeMonitoring = true
		return c.videoInput.Configure(st)
	})
}

func pickMode(supported func(capture.FocusMode) bool) capture.FocusMode {
	switch {
	case supported(capture.FocusContinuous):
		return capture.FocusContinuous
	case supported(capture.FocusAuto):
		return capture.FocusAuto
	default:
		return capture.FocusLocked
	}
}

func clampPoint(p capture.Point) *capture.Point {
	return &capture.Point{
		X: min(1, max(0, p.X)),
		Y: min(1, max(0, p.Y)),
	}
}

// SetSquareMode toggles the centered square crop for photos.
func (c *Controller) SetSquareMode(ctx context.Context, on bool) error {
	return c.do(ctx, func() error {
		c.square = on
		return nil
	})
}

// SetLiveEffect applies stage to every preview and recorded frame. Nil
// clears the effect. The stage is copied.
func (c *Controller) SetLiveEffect(ctx context.Context, stage filters.Stage) error {
	if stage != nil {
		stage = stage.Clone()
	}
	return c.do(ctx, func() error {
		c.liveEffect = stage
		return nil
	})
}

// TakePhoto captures a still with the current orientation and flash. In
// square mode the still is cropped to its centered square.
func (c *Controller) TakePhoto(ctx context.Context) (image.Image, error) {
	var out image.Image
	err := c.do(ctx, func() error {
		if c.state != StateRunning {
			return ErrNotRunning
		}
		c.emit(Event{Type: EventStillCaptureStarted})

		flash := capture.FlashOff
		if c.mode == ModePhoto {
			flash = c.flash
		}
		orientation := capture.CurrentOrientation(c.motion)

		img, err := c.session.CaptureStill(ctx, orientation, flash)
		if err != nil {
			return fmt.Errorf("capture still: %w", err)
		}
		if !c.square {
			out = img
			return nil
		}

		b := img.Bounds()
		crop := filters.NewOrientationCrop()
		crop.Crop = crops.Square(b.Dx(), b.Dy())
		squared, ok := c.proc.ApplyStages(img, crop)
		if !ok {
			return errors.New("camera: square crop produced no image")
		}
		out = squared
		return nil
	})
	return out, err
}

// StartVideoRecording begins a recording job. It does nothing while a
// recording is already requested or active, and fails with ErrRecording
// while the previous job is still being finalized.
func (c *Controller) StartVideoRecording(ctx context.Context) error {
	return c.do(ctx, func() error {
		if c.rec == nil {
			return errors.New("camera: no recorder configured")
		}
		if c.state != StateRunning {
			return ErrNotRunning
		}
		if c.recording != nil {
			return nil
		}

		opts := recorder.Options{
			FrameRate:   c.cfg.FrameRate,
			Orientation: capture.CurrentOrientation(c.motion),
			Mirrored:    c.videoInput.Info().Position == capture.PositionFront,
		}
		if c.audioInput != nil {
			format := c.cfg.AudioFormat
			opts.Audio = &format
		}

		job, err := c.rec.Start(ctx, opts)
		if errors.Is(err, recorder.ErrJobActive) {
			// The previous job is still finalizing; nothing was started.
			return fmt.Errorf("start recording: %w", ErrRecording)
		}
		if err != nil {
			c.emit(Event{Type: EventRecordingFailed, Err: err})
			return fmt.Errorf("start recording: %w", err)
		}

		c.recording = &recording{
			job:     job,
			started: time.Now(),
			ticker:  time.NewTicker(c.cfg.TimerInterval),
		}
		c.emit(Event{Type: EventRecordingStarted, Path: job.Path()})
		return nil
	})
}

// StopVideoRecording finalizes the active job. RecordingFinished or
// RecordingFailed follows once the file is written.
func (c *Controller) StopVideoRecording(ctx context.Context) error {
	return c.do(ctx, func() error {
		c.stopRecording()
		return nil
	})
}

func (c *Controller) stopRecording() {
	r := c.recording
	if r == nil {
		return
	}
	r.ticker.Stop()
	c.recording = nil

	job := r.job
	job.Stop(func(path string, err error) {
		if err != nil {
			c.metrics.RecordingFinished("failed")
			c.emit(Event{Type: EventRecordingFailed, Err: &RecordingError{JobID: job.ID, Err: err}})
			return
		}
		c.metrics.RecordingFinished("ok")
		c.emit(Event{Type: EventRecordingFinished, Path: path})
	})
}

// failRecording drops a job that already aborted itself.
func (c *Controller) failRecording(err error) {
	r := c.recording
	if r == nil {
		return
	}
	r.ticker.Stop()
	c.recording = nil
	r.job.Abort(err)
	c.metrics.RecordingFinished("failed")
	c.emit(Event{Type: EventRecordingFailed, Err: &RecordingError{JobID: r.job.ID, Err: err}})
}

func (c *Controller) requireConfigurable() error {
	switch {
	case !c.setupDone:
		return ErrNotSetUp
	case c.state == StateReconfiguring:
		return ErrBusy
	case c.recording != nil:
		return ErrRecording
	}
	return nil
}

// configureDevice pushes flash and torch to the current device, turning
// off anything it does not support, and keeps focus and exposure
// continuous where possible.
func (c *Controller) configureDevice() {
	info := c.videoInput.Info()
	if c.flash != capture.FlashOff && !info.SupportsFlash(c.flash) {
		c.flash = capture.FlashOff
	}
	if c.torch != capture.FlashOff && !info.SupportsTorch(c.torch) {
		c.torch = capture.FlashOff
	}

	st := c.videoInput.State()
	st.FlashMode = c.flash
	st.TorchMode = capture.FlashOff
	if c.mode == ModeVideo {
		st.TorchMode = c.torch
	}
	st.FocusMode = pickMode(info.SupportsFocus)
	st.ExposureMode = pickMode(info.SupportsExposure)
	if !info.FocusPointSupported {
		st.FocusPoint = nil
	}
	if !info.ExposurePointSupported {
		st.ExposurePoint = nil
	}
	if err := c.videoInput.Configure(st); err != nil {
		slog.Warn("device configuration rejected", "device", info.ID, "error", err)
	}
}

// --- worker ---

// do runs fn on the worker and waits for its result.
func (c *Controller) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	job := func() {
		err := c.safely(fn)
		c.publishStatus()
		res <- err
	}

	select {
	case c.jobs <- job:
	case <-c.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("camera: panic: %v", r)
			slog.Error("camera worker panic", "panic", r)
			c.emit(Event{Type: EventError, Err: err})
		}
	}()
	return fn()
}

func (c *Controller) work() {
	defer c.wg.Done()
	for {
		var tick <-chan time.Time
		if c.recording != nil {
			tick = c.recording.ticker.C
		}

		select {
		case <-c.quit:
			return
		case job := <-c.jobs:
			job()
			continue
		case f := <-c.frames:
			_ = c.safely(func() error { c.handleFrame(f); return nil })
		case s := <-c.audio:
			_ = c.safely(func() error { c.handleAudio(s); return nil })
		case <-tick:
			c.tickRecording()
		}
		c.publishStatus()
	}
}

// onFrame runs on the session's goroutine. The mailbox holds one frame; a
// newer frame replaces a waiting one so the worker never falls behind.
func (c *Controller) onFrame(f capture.Frame) {
	select {
	case c.frames <- f:
		return
	default:
	}
	select {
	case <-c.frames:
		c.metrics.FrameDropped()
	default:
	}
	select {
	case c.frames <- f:
	default:
		c.metrics.FrameDropped()
	}
}

func (c *Controller) onAudio(s capture.AudioSample) {
	select {
	case c.audio <- s:
	default:
		slog.Debug("audio sample dropped")
	}
}

// onRuntimeError restarts the session on the worker.
func (c *Controller) onRuntimeError(err error) {
	go func() {
		rerr := c.do(context.Background(), func() error {
			return c.restart(err)
		})
		if rerr != nil && !errors.Is(rerr, ErrClosed) {
			slog.Error("session restart failed", "error", rerr)
		}
	}()
}

// onSubjectAreaChange drops a tapped focus or exposure point once the
// scene has moved on.
func (c *Controller) onSubjectAreaChange(d capture.Device) {
	go func() {
		err := c.do(context.Background(), func() error {
			if d != c.videoInput {
				return nil
			}
			return c.resetPointsOfInterest()
		})
		if err != nil && !errors.Is(err, ErrClosed) {
			slog.Warn("focus reset failed", "error", err)
		}
	}()
}

// resetPointsOfInterest returns focus and exposure to continuous at the
// center and stops watching for subject changes.
func (c *Controller) resetPointsOfInterest() error {
	info := c.videoInput.Info()
	center := &capture.Point{X: 0.5, Y: 0.5}

	st := c.videoInput.State()
	st.FocusMode = pickMode(info.SupportsFocus)
	st.ExposureMode = pickMode(info.SupportsExposure)
	st.FocusPoint = nil
	st.ExposurePoint = nil
	if info.FocusPointSupported {
		st.FocusPoint = center
	}
	if info.ExposurePointSupported {
		st.ExposurePoint = center
	}
	st.SubjectAreaChangeMonitoring = false
	return c.videoInput.Configure(st)
}

func (c *Controller) restart(cause error) error {
	slog.Warn("capture session runtime error", "error", cause)
	c.failRecording(cause)
	if c.state != StateRunning {
		return nil
	}
	c.metrics.SessionRestarted()
	if err := c.session.Start(context.Background()); err != nil {
		c.state = StateStopped
		c.emit(Event{Type: EventSessionStopped, Err: err})
		return err
	}
	c.emit(Event{Type: EventSessionStarted})
	return nil
}

func (c *Controller) handleFrame(f capture.Frame) {
	if c.state != StateRunning && c.state != StateReconfiguring {
		return
	}
	img := f.Image
	if c.liveEffect != nil {
		out, ok := c.proc.ApplyStages(img, c.liveEffect)
		if !ok {
			c.metrics.FrameDropped()
			return
		}
		img = out
	}

	if c.surface != nil {
		c.surface.Draw(img)
	}
	if c.recording != nil {
		if err := c.recording.job.AppendVideoFrame(img, f.PTS); err != nil {
			c.failRecording(err)
		}
	}
	c.metrics.FrameProcessed()
}

func (c *Controller) handleAudio(s capture.AudioSample) {
	if c.recording == nil {
		return
	}
	if err := c.recording.job.AppendAudioSample(s); err != nil {
		c.failRecording(err)
	}
}

func (c *Controller) tickRecording() {
	r := c.recording
	if r == nil {
		return
	}
	elapsed := time.Since(r.started)
	c.emit(Event{Type: EventRecordingProgress, Seconds: elapsed.Seconds()})
	if c.cfg.MaxVideoLength > 0 && elapsed >= c.cfg.MaxVideoLength {
		slog.Info("maximum video length reached", "limit", c.cfg.MaxVideoLength)
		c.stopRecording()
	}
}

func (c *Controller) publishStatus() {
	st := Status{
		State:      c.state.String(),
		Mode:       c.mode.String(),
		Flash:      c.flash.String(),
		Torch:      c.torch.String(),
		SquareMode: c.square,
		Recording:  c.recording != nil,
		Audio:      c.audioInput != nil,
		Position:   capture.PositionUnspecified.String(),
	}
	if c.videoInput != nil {
		st.Position = c.videoInput.Info().Position.String()
	}
	if c.recording != nil {
		st.Elapsed = time.Since(c.recording.started).Seconds()
	}
	if c.liveEffect != nil {
		st.LiveEffect = string(c.liveEffect.Kind())
	}

	c.statusMu.Lock()
	c.status = st
	c.statusMu.Unlock()
}

// --- events ---

func (c *Controller) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	if c.eventsClosed {
		return
	}
	if !ev.Type.droppable() {
		// The dispatcher drains without taking eventsMu.
		c.events <- ev
		return
	}
	select {
	case c.events <- ev:
	default:
		slog.Warn("event queue full, dropping event", "event", ev.Type.String())
	}
}

func (c *Controller) dispatch() {
	defer c.wg.Done()
	for ev := range c.events {
		c.listenersMu.Lock()
		fns := make([]func(Event), 0, len(c.listeners))
		for id := 0; id < c.nextID; id++ {
			if fn, ok := c.listeners[id]; ok {
				fns = append(fns, fn)
			}
		}
		c.listenersMu.Unlock()

		for _, fn := range fns {
			fn(ev)
		}
	}
}
