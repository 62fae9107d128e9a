package recorder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"thirdcoast.systems/camerakit/pkg/capture"
)

type jobState int

const (
	statePending jobState = iota
	stateWriting
	stateFinishing
	stateFinished
	stateFailed
)

func (s jobState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateWriting:
		return "writing"
	case stateFinishing:
		return "finishing"
	case stateFinished:
		return "finished"
	default:
		return "failed"
	}
}

// Job is one recording. Appends must come from a single goroutine in
// timestamp order; Stop and Abort may be called from anywhere.
type Job struct {
	ID uuid.UUID

	path      string
	opts      Options
	newWriter WriterFactory
	ctx       context.Context
	cancel    context.CancelFunc
	rotation  int
	endTask   func()

	mu      sync.Mutex
	state   jobState
	writer  Writer
	pool    *sync.Pool
	width   int
	height  int
	start   time.Duration
	lastPTS time.Duration
	frames  int64
	samples int64
	failure error
}

// Path returns the output file.
func (j *Job) Path() string { return j.path }

// Rotation returns the clockwise display rotation baked into the output.
func (j *Job) Rotation() int { return j.rotation }

// Writing reports whether the first frame has been written and the job has
// not been stopped.
func (j *Job) Writing() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state == stateWriting
}

// Frames returns how many video frames were appended.
func (j *Job) Frames() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.frames
}

// Err returns the abort cause, if the job failed.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failure
}

func (j *Job) closed() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state == stateFinished || j.state == stateFailed
}

// AppendVideoFrame writes img at pts. The first call creates the writer
// and anchors the timeline, so the first frame lands at zero. Any error
// other than ErrJobClosed has already aborted the job.
func (j *Job) AppendVideoFrame(img image.Image, pts time.Duration) error {
	err := j.appendVideo(img, pts)
	if err != nil && !errors.Is(err, ErrJobClosed) {
		j.notifyFailed(err)
	}
	return err
}

func (j *Job) appendVideo(img image.Image, pts time.Duration) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.state {
	case statePending:
		if err := j.openLocked(img, pts); err != nil {
			j.failLocked(err)
			return err
		}
	case stateWriting:
		if pts < j.lastPTS {
			err := fmt.Errorf("%w: %s after %s", ErrTimestampOrder, pts, j.lastPTS)
			j.failLocked(err)
			return err
		}
	default:
		return ErrJobClosed
	}

	buf := j.pool.Get().(*image.RGBA)
	defer j.pool.Put(buf)
	fitInto(buf, img)

	if err := j.writer.WriteVideo(buf, pts-j.start); err != nil {
		err = fmt.Errorf("append video frame: %w", err)
		j.failLocked(err)
		return err
	}
	j.lastPTS = pts
	j.frames++
	return nil
}

// AppendAudioSample writes s relative to the first video frame. Samples
// before the first frame are dropped.
func (j *Job) AppendAudioSample(s capture.AudioSample) error {
	err := j.appendAudio(s)
	if err != nil && !errors.Is(err, ErrJobClosed) {
		j.notifyFailed(err)
	}
	return err
}

func (j *Job) appendAudio(s capture.AudioSample) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.state {
	case statePending:
		return nil
	case stateWriting:
	default:
		return ErrJobClosed
	}
	if j.opts.Audio == nil || s.PTS < j.start {
		return nil
	}

	if err := j.writer.WriteAudio(s, s.PTS-j.start); err != nil {
		err = fmt.Errorf("append audio sample: %w", err)
		j.failLocked(err)
		return err
	}
	j.samples++
	return nil
}

// Stop marks the tracks finished and finalizes the file in the background.
// Appends already holding the job finish first. done receives the output
// path, or an error if finalizing failed; it runs after the background
// task has ended.
func (j *Job) Stop(done func(path string, err error)) {
	if done == nil {
		done = func(string, error) {}
	}

	j.mu.Lock()
	switch j.state {
	case statePending:
		j.state = stateFinished
		j.cancel()
		j.mu.Unlock()
		j.endTask()
		done("", ErrNoFrames)
		return
	case stateWriting:
		j.state = stateFinishing
	case stateFailed:
		err := j.failure
		j.mu.Unlock()
		done("", err)
		return
	default:
		j.mu.Unlock()
		done("", ErrJobClosed)
		return
	}
	writer := j.writer
	frames := j.frames
	j.mu.Unlock()

	go func() {
		err := writer.Close(j.ctx)
		j.cancel()

		j.mu.Lock()
		switch {
		case j.state == stateFailed:
			// Aborted while finalizing.
			err = j.failure
		case err != nil:
			j.state = stateFailed
			j.failure = err
		default:
			j.state = stateFinished
		}
		j.mu.Unlock()

		if err != nil {
			os.Remove(j.path)
			slog.Error("recording finalize failed", "job", j.ID, "error", err)
			j.endTask()
			done("", err)
			return
		}

		attrs := []any{"job", j.ID, "path", j.path, "frames", frames}
		if info, statErr := os.Stat(j.path); statErr == nil {
			attrs = append(attrs, "size", humanize.Bytes(uint64(info.Size())))
		}
		slog.Info("recording finished", attrs...)
		j.endTask()
		done(j.path, nil)
	}()
}

// Abort cancels the job, removes the partial file and reports err through
// Options.Failed. Aborting a closed job does nothing.
func (j *Job) Abort(err error) {
	j.mu.Lock()
	if j.state == stateFinished || j.state == stateFailed {
		j.mu.Unlock()
		return
	}
	j.failLocked(err)
	j.mu.Unlock()
	j.notifyFailed(err)
}

func (j *Job) openLocked(img image.Image, pts time.Duration) error {
	if img == nil || img.Bounds().Empty() {
		return errors.New("recorder: empty first frame")
	}

	w, h := j.opts.Width, j.opts.Height
	if w <= 0 || h <= 0 {
		b := img.Bounds()
		w, h = b.Dx(), b.Dy()
	}

	writer, err := j.newWriter(j.ctx, WriterOptions{
		Path:      j.path,
		Width:     w,
		Height:    h,
		FrameRate: j.opts.FrameRate,
		Rotation:  j.rotation,
		HFlip:     j.opts.Mirrored,
		Audio:     j.opts.Audio,
	})
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}

	j.writer = writer
	j.width, j.height = w, h
	j.pool = &sync.Pool{New: func() any {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}}
	j.start = pts
	j.lastPTS = pts
	j.state = stateWriting

	slog.Info("recording started", "job", j.ID, "width", w, "height", h,
		"fps", j.opts.FrameRate, "rotation", j.rotation)
	return nil
}

// failLocked tears the job down. Callers notify Options.Failed once the
// lock is released.
func (j *Job) failLocked(err error) {
	j.state = stateFailed
	j.failure = err
	j.cancel()
	if j.writer != nil {
		j.writer.Abort()
	}
	if rmErr := os.Remove(j.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		slog.Warn("failed to remove partial recording", "job", j.ID, "error", rmErr)
	}
	slog.Error("recording aborted", "job", j.ID, "error", err)
	j.endTask()
}

func (j *Job) notifyFailed(err error) {
	if j.opts.Failed != nil {
		j.opts.Failed(err)
	}
}

// fitInto scales src to fill dst. Same-size frames are copied.
func fitInto(dst *image.RGBA, src image.Image) {
	sb := src.Bounds()
	if sb.Dx() == dst.Rect.Dx() && sb.Dy() == dst.Rect.Dy() {
		draw.Draw(dst, dst.Rect, src, sb.Min, draw.Src)
		return
	}
	draw.ApproxBiLinear.Scale(dst, dst.Rect, src, sb, draw.Src, nil)
}
