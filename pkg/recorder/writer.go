package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"thirdcoast.systems/camerakit/pkg/capture"
	"thirdcoast.systems/camerakit/pkg/ffmpeg"
)

// WriterOptions is the fixed geometry of one output file.
type WriterOptions struct {
	Path      string
	Width     int
	Height    int
	FrameRate int
	// Rotation is the clockwise display rotation in degrees.
	Rotation int
	HFlip    bool
	Audio    *AudioFormat
	// Offline favors quality over encoding speed.
	Offline bool
}

// Writer encodes frames into a container. Frames and samples carry
// timestamps relative to the first frame. A Writer must not retain img
// after WriteVideo returns.
type Writer interface {
	WriteVideo(img *image.RGBA, pts time.Duration) error
	WriteAudio(s capture.AudioSample, pts time.Duration) error
	// Close flushes and finalizes the file.
	Close(ctx context.Context) error
	// Abort stops encoding immediately. The file is left incomplete.
	Abort()
}

// WriterFactory opens a Writer.
type WriterFactory func(ctx context.Context, opts WriterOptions) (Writer, error)

// Audio blocks queued for the encoder before new ones are dropped.
const audioQueue = 256

type ffmpegWriter struct {
	opts     WriterOptions
	proc     *ffmpeg.Process
	frameDur time.Duration

	written int64 // frames written, including duplicates
	last    []byte

	audio        chan []byte
	audioDone    chan struct{}
	audioOnce    sync.Once
	audioErr     error
	audioErrMu   sync.Mutex
	audioSamples int64 // per-channel samples queued
}

// NewFFmpegWriter starts ffmpeg reading RGBA frames on stdin and, when
// audio is enabled, s16le PCM on fd 3. Output is constant frame rate h264
// with the rotation stored as display metadata.
func NewFFmpegWriter(ctx context.Context, opts WriterOptions) (Writer, error) {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}

	cmdOpts := []ffmpeg.Option{
		ffmpeg.LogLevel("error"),
		ffmpeg.RawVideoInput(opts.Width, opts.Height, opts.FrameRate),
	}
	// ffmpeg's display matrix turns anticlockwise.
	if rot := (360 - opts.Rotation%360) % 360; rot != 0 {
		cmdOpts = append(cmdOpts, ffmpeg.DisplayRotation(rot))
	}
	if opts.HFlip {
		cmdOpts = append(cmdOpts, ffmpeg.DisplayHFlip)
	}

	extra := 0
	if opts.Audio != nil {
		extra = 1
		cmdOpts = append(cmdOpts,
			ffmpeg.RawAudioInput(opts.Audio.Rate, opts.Audio.Channels),
			ffmpeg.MapStream("0:v"),
			ffmpeg.MapStream("1:a"),
		)
		cmdOpts = append(cmdOpts, ffmpeg.PresetAAC(opts.Audio.Channels)...)
	} else {
		cmdOpts = append(cmdOpts, ffmpeg.NoAudio)
	}
	if opts.Offline {
		cmdOpts = append(cmdOpts, ffmpeg.Preset264Quality()...)
	} else {
		cmdOpts = append(cmdOpts, ffmpeg.Preset264Fast()...)
	}
	cmdOpts = append(cmdOpts, ffmpeg.EvenDimensions())

	proc, err := ffmpeg.NewCommand(opts.Path, cmdOpts...).StartPiped(ctx, extra)
	if err != nil {
		return nil, err
	}

	w := &ffmpegWriter{
		opts:     opts,
		proc:     proc,
		frameDur: time.Second / time.Duration(opts.FrameRate),
	}
	if opts.Audio != nil {
		w.audio = make(chan []byte, audioQueue)
		w.audioDone = make(chan struct{})
		go w.pumpAudio()
	}
	return w, nil
}

// WriteVideo keeps the output at a constant rate: a frame landing past
// the next slot repeats the previous frame to fill the gap, and a frame
// landing on an already written slot is dropped.
func (w *ffmpegWriter) WriteVideo(img *image.RGBA, pts time.Duration) error {
	if err := w.exited(); err != nil {
		return err
	}

	slot := int64(math.Round(float64(pts) / float64(w.frameDur)))
	if slot < w.written {
		return nil
	}

	stdin := w.proc.Stdin()
	for w.written < slot && w.last != nil {
		if _, err := stdin.Write(w.last); err != nil {
			return w.writeErr(err)
		}
		w.written++
	}

	pix := packed(img)
	if _, err := stdin.Write(pix); err != nil {
		return w.writeErr(err)
	}
	w.written++

	if w.last == nil {
		w.last = make([]byte, len(pix))
	}
	copy(w.last, pix)
	return nil
}

// WriteAudio queues s for the audio pipe. Gaps longer than one block are
// filled with silence so audio stays aligned with the video slots.
func (w *ffmpegWriter) WriteAudio(s capture.AudioSample, pts time.Duration) error {
	if w.audio == nil {
		return nil
	}
	if err := w.exited(); err != nil {
		return err
	}
	w.audioErrMu.Lock()
	err := w.audioErr
	w.audioErrMu.Unlock()
	if err != nil {
		return err
	}

	channels := w.opts.Audio.Channels
	expected := int64(pts) * int64(w.opts.Audio.Rate) / int64(time.Second)
	if gap := expected - w.audioSamples; gap > int64(w.opts.Audio.Rate)/50 {
		w.enqueue(make([]byte, gap*int64(channels)*2))
		w.audioSamples += gap
	}

	buf := make([]byte, len(s.Data)*2)
	for i, v := range s.Data {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	w.enqueue(buf)
	w.audioSamples += int64(len(s.Data) / max(channels, 1))
	return nil
}

func (w *ffmpegWriter) enqueue(b []byte) {
	select {
	case w.audio <- b:
	default:
		slog.Warn("audio encoder queue full, dropping block", "bytes", len(b))
	}
}

func (w *ffmpegWriter) pumpAudio() {
	defer close(w.audioDone)
	pipe := w.proc.ExtraPipe(0)
	for b := range w.audio {
		if _, err := pipe.Write(b); err != nil {
			w.audioErrMu.Lock()
			w.audioErr = w.writeErr(err)
			w.audioErrMu.Unlock()
			// Keep draining so the producer never blocks.
			for range w.audio {
			}
			return
		}
	}
}

// stopAudio flushes queued audio. Safe to call from Close and Abort.
func (w *ffmpegWriter) stopAudio() {
	if w.audio == nil {
		return
	}
	w.audioOnce.Do(func() { close(w.audio) })
	<-w.audioDone
}

func (w *ffmpegWriter) Close(ctx context.Context) error {
	w.stopAudio()
	if err := w.proc.CloseInputs(); err != nil {
		slog.Warn("closing ffmpeg inputs", "error", err)
	}

	select {
	case <-w.proc.Done():
		return w.proc.Wait()
	case <-ctx.Done():
		w.proc.Kill()
		<-w.proc.Done()
		return ctx.Err()
	}
}

func (w *ffmpegWriter) Abort() {
	w.proc.Kill()
	w.stopAudio()
	w.proc.CloseInputs()
	<-w.proc.Done()
}

func (w *ffmpegWriter) exited() error {
	select {
	case <-w.proc.Done():
		if err := w.proc.Wait(); err != nil {
			return err
		}
		return errors.New("ffmpeg exited early")
	default:
		return nil
	}
}

// writeErr prefers the process error, which carries ffmpeg's stderr, over
// the broken pipe that usually surfaces first.
func (w *ffmpegWriter) writeErr(err error) error {
	select {
	case <-w.proc.Done():
		if perr := w.proc.Wait(); perr != nil {
			return perr
		}
	case <-time.After(100 * time.Millisecond):
	}
	return fmt.Errorf("write to ffmpeg: %w", err)
}

// packed returns the pixel bytes of img without row padding.
func packed(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y)
		return img.Pix[start : start+w*h*4]
	}
	out := make([]byte, 0, w*h*4)
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		i := img.PixOffset(img.Rect.Min.X, y)
		out = append(out, img.Pix[i:i+w*4]...)
	}
	return out
}
