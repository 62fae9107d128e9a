// Package recorder writes filtered frames and raw audio to a video file.
//
// A Recorder owns the output location and hands out at most one Job at a
// time. The Job is created pending; its first video frame fixes the output
// geometry and the zero point of the timeline.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"thirdcoast.systems/camerakit/pkg/capture"
	"thirdcoast.systems/camerakit/pkg/utils/filename"
)

const (
	DefaultFileName  = "recording.mov"
	DefaultFrameRate = 30
)

var (
	// ErrJobActive is returned by Start while another job is unfinished.
	ErrJobActive = errors.New("recorder: a recording is already active")
	// ErrTimestampOrder is an append whose timestamp precedes the last one.
	ErrTimestampOrder = errors.New("recorder: timestamp went backwards")
	// ErrJobClosed is returned by appends after Stop or Abort.
	ErrJobClosed = errors.New("recorder: job closed")
	// ErrNoFrames is reported by Stop when no frame was ever written.
	ErrNoFrames = errors.New("recorder: no frames written")
)

// AudioFormat describes the PCM handed to AppendAudioSample.
type AudioFormat struct {
	Rate     int
	Channels int
}

// Options configures one recording.
type Options struct {
	// Width and Height force the output size. Zero takes the size of the
	// first frame.
	Width     int
	Height    int
	FrameRate int

	Orientation capture.Orientation
	Mirrored    bool

	// Audio enables an audio track. Nil records video only.
	Audio *AudioFormat

	// Failed is called once if the job is aborted, whether by Abort or by a
	// failed append. It runs on the goroutine that caused the failure.
	Failed func(err error)
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithFileName overrides DefaultFileName. The name is sanitized; one that
// sanitizes to nothing keeps the default.
func WithFileName(name string) Option {
	return func(r *Recorder) {
		if clean := filename.Sanitize(name, 0); clean != "" {
			r.fileName = clean
		}
	}
}

// WithWriterFactory replaces the ffmpeg writer.
func WithWriterFactory(f WriterFactory) Option {
	return func(r *Recorder) { r.newWriter = f }
}

// WithBackgroundTasks registers each job with tasks so shutdown can wait
// for finalization.
func WithBackgroundTasks(tasks BackgroundTasks) Option {
	return func(r *Recorder) { r.tasks = tasks }
}

// Recorder creates recording jobs in a fixed output location.
type Recorder struct {
	dir       string
	fileName  string
	newWriter WriterFactory
	tasks     BackgroundTasks

	mu     sync.Mutex
	active *Job
}

// New creates a Recorder writing into dir.
func New(dir string, opts ...Option) *Recorder {
	r := &Recorder{
		dir:       dir,
		fileName:  DefaultFileName,
		newWriter: NewFFmpegWriter,
		tasks:     noopTasks{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the output file path.
func (r *Recorder) Path() string {
	return filepath.Join(r.dir, r.fileName)
}

// Active returns the unfinished job, if any.
func (r *Recorder) Active() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.closed() {
		r.active = nil
	}
	return r.active
}

// Start creates a pending job. The previous output is removed first.
func (r *Recorder) Start(ctx context.Context, opts Options) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil && !r.active.closed() {
		return nil, ErrJobActive
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	path := r.Path()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale recording: %w", err)
	}

	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}

	id := uuid.New()
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &Job{
		ID:        id,
		path:      path,
		opts:      opts,
		newWriter: r.newWriter,
		ctx:       jobCtx,
		cancel:    cancel,
		rotation:  capture.RecordingTransform(opts.Orientation, opts.Mirrored),
		endTask:   r.tasks.Begin("recording " + id.String()),
	}
	r.active = job

	slog.Info("recording job created", "job", id, "path", path,
		"orientation", opts.Orientation.String(), "audio", opts.Audio != nil)
	return job, nil
}
