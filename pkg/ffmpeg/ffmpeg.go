// Package ffmpeg builds and runs ffmpeg commands that read raw frames and
// PCM from pipes.
package ffmpeg

import (
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Pipe names used for raw inputs. Extra pipes start at file descriptor 3.
const (
	StdinPipe = "pipe:0"
	AudioPipe = "pipe:3"
)

// Command represents an ffmpeg command being built.
type Command struct {
	inputs   []input
	output   string
	global   []string // args before the first -i
	outArgs  []string // args after the last -i
	vfilters []string
}

type input struct {
	args   []string
	source string
}

// Option modifies a Command. Inputs are numbered in the order their
// options are applied; everything else is order-independent.
type Option interface {
	Apply(cmd *Command)
}

// OptionFunc is a function that implements Option.
type OptionFunc func(cmd *Command)

// Apply implements Option.
func (f OptionFunc) Apply(cmd *Command) { f(cmd) }

// NewCommand creates a command writing output and applies opts.
func NewCommand(output string, opts ...Option) *Command {
	cmd := &Command{output: output}
	for _, opt := range opts {
		opt.Apply(cmd)
	}
	return cmd
}

// Build returns the complete ffmpeg argument list.
func (c *Command) Build() []string {
	args := []string{"-hide_banner", "-y"}
	args = append(args, c.global...)
	for _, in := range c.inputs {
		args = append(args, in.args...)
		args = append(args, "-i", in.source)
	}
	args = append(args, c.outArgs...)

	if len(c.vfilters) > 0 {
		args = append(args, "-vf", strings.Join(c.vfilters, ","))
	}

	switch strings.ToLower(filepath.Ext(c.output)) {
	case ".mp4", ".m4a", ".mov":
		args = append(args, "-movflags", "+faststart")
	}

	return append(args, c.output)
}

// StartPiped starts the command with a stdin pipe and extraPipes
// additional pipes at fd 3 and up.
func (c *Command) StartPiped(ctx context.Context, extraPipes int) (*Process, error) {
	return StartPiped(ctx, c.Build(), extraPipes)
}

// Available reports whether the ffmpeg binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// --- Inputs ---

// RawVideoInput adds an input reading packed RGBA frames of w x h from
// stdin at a constant fps.
func RawVideoInput(w, h, fps int) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.inputs = append(cmd.inputs, input{
			args: []string{
				"-f", "rawvideo",
				"-pix_fmt", "rgba",
				"-video_size", itoa(w) + "x" + itoa(h),
				"-framerate", itoa(fps),
			},
			source: StdinPipe,
		})
	})
}

// RawAudioInput adds an input reading interleaved s16le PCM from the first
// extra pipe.
func RawAudioInput(rate, channels int) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.inputs = append(cmd.inputs, input{
			args: []string{
				"-f", "s16le",
				"-ar", itoa(rate),
				"-ac", itoa(channels),
			},
			source: AudioPipe,
		})
	})
}

// DisplayRotation stores a display matrix rotating the first input
// anticlockwise by deg degrees. The pixels are not touched.
func DisplayRotation(deg int) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.global = append(cmd.global, "-display_rotation", itoa(deg))
	})
}

// DisplayHFlip stores a horizontal flip in the first input's display matrix.
var DisplayHFlip Option = OptionFunc(func(cmd *Command) {
	cmd.global = append(cmd.global, "-display_hflip")
})

// --- Codecs ---

// VideoCodec sets the video codec (-c:v).
func VideoCodec(codec string) Option {
	return outputArgs("-c:v", codec)
}

// CRF sets the constant rate factor.
func CRF(value int) Option {
	return outputArgs("-crf", itoa(value))
}

// Preset sets the encoder speed preset (ultrafast, medium, ...).
func Preset(name string) Option {
	return outputArgs("-preset", name)
}

// PixelFormat sets the output pixel format.
func PixelFormat(fmt string) Option {
	return outputArgs("-pix_fmt", fmt)
}

// AudioCodec sets the audio codec (-c:a).
func AudioCodec(codec string) Option {
	return outputArgs("-c:a", codec)
}

// AudioBitrate sets the audio bitrate (-b:a).
func AudioBitrate(bitrate string) Option {
	return outputArgs("-b:a", bitrate)
}

// AudioChannels sets the number of output audio channels.
func AudioChannels(n int) Option {
	return outputArgs("-ac", itoa(n))
}

// NoAudio disables audio in the output (-an).
var NoAudio = outputArgs("-an")

// MapStream maps a specific stream (-map {spec}).
func MapStream(spec string) Option {
	return outputArgs("-map", spec)
}

// --- Filters ---

// Filter appends a video filter to the -vf chain.
func Filter(f string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.vfilters = append(cmd.vfilters, f)
	})
}

// EvenDimensions trims a trailing odd row or column. yuv420p needs both
// dimensions divisible by 2.
func EvenDimensions() Option {
	return Filter("crop=trunc(iw/2)*2:trunc(ih/2)*2:0:0")
}

// LogLevel sets ffmpeg's stderr verbosity.
func LogLevel(level string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.global = append([]string{"-loglevel", level}, cmd.global...)
	})
}

func outputArgs(args ...string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.outArgs = append(cmd.outArgs, args...)
	})
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
