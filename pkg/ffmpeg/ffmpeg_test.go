package ffmpeg

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatten(groups ...[]Option) []Option {
	var all []Option
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

func TestCommandBuild(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		opts     []Option
		wantArgs []string
	}{
		{
			name:   "raw video only",
			output: "recording.mov",
			opts: flatten(
				[]Option{RawVideoInput(640, 480, 30), NoAudio},
				Preset264Fast(),
				[]Option{EvenDimensions()},
			),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-f", "rawvideo", "-pix_fmt", "rgba", "-video_size", "640x480", "-framerate", "30",
				"-i", "pipe:0",
				"-an",
				"-c:v", "libx264",
				"-crf", "23",
				"-preset", "ultrafast",
				"-pix_fmt", "yuv420p",
				"-vf", "crop=trunc(iw/2)*2:trunc(ih/2)*2:0:0",
				"-movflags", "+faststart",
				"recording.mov",
			},
		},
		{
			name:   "raw video and audio with display matrix",
			output: "recording.mov",
			opts: flatten(
				[]Option{
					RawVideoInput(320, 240, 25),
					RawAudioInput(48000, 1),
					DisplayRotation(270),
					DisplayHFlip,
					MapStream("0:v"),
					MapStream("1:a"),
					LogLevel("error"),
				},
				PresetAAC(1),
			),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-loglevel", "error",
				"-display_rotation", "270", "-display_hflip",
				"-f", "rawvideo", "-pix_fmt", "rgba", "-video_size", "320x240", "-framerate", "25",
				"-i", "pipe:0",
				"-f", "s16le", "-ar", "48000", "-ac", "1",
				"-i", "pipe:3",
				"-map", "0:v",
				"-map", "1:a",
				"-c:a", "aac",
				"-b:a", "128k",
				"-ac", "1",
				"-movflags", "+faststart",
				"recording.mov",
			},
		},
		{
			name:   "offline export without faststart",
			output: "reel.mkv",
			opts:   flatten([]Option{RawVideoInput(8, 8, 13)}, Preset264Quality()),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-f", "rawvideo", "-pix_fmt", "rgba", "-video_size", "8x8", "-framerate", "13",
				"-i", "pipe:0",
				"-c:v", "libx264",
				"-crf", "21",
				"-preset", "medium",
				"-pix_fmt", "yuv420p",
				"reel.mkv",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCommand(tt.output, tt.opts...).Build()
			assert.Equal(t, tt.wantArgs, got)
		})
	}
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 30.0, parseFrameRate("30/1"))
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.01)
	assert.Zero(t, parseFrameRate("0/0"))
	assert.Zero(t, parseFrameRate("bogus"))
}

func TestErrorMessage(t *testing.T) {
	base := errors.New("exit status 1")
	e := &Error{
		Args:   []string{"-i", "x"},
		Stderr: "line1\nline2\nline3\nline4\n",
		Err:    base,
	}
	assert.Equal(t, "ffmpeg: exit status 1: line2\nline3\nline4", e.Error())
	assert.ErrorIs(t, e, base)
	assert.Equal(t, "ffmpeg -i x", e.Command())

	assert.Equal(t, "ffmpeg: exit status 1", (&Error{Err: base}).Error())
}

// =============================================================================
// Integration tests - require ffmpeg to be installed
// =============================================================================

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil || !Available() {
		t.Skip("ffmpeg/ffprobe not on PATH")
	}
}

func TestIntegration_PipedRawInputs(t *testing.T) {
	requireFFmpeg(t)

	const (
		w, h, fps = 64, 48, 10
		frames    = 20
		rate      = 8000
	)
	output := filepath.Join(t.TempDir(), "piped.mov")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := NewCommand(output, flatten(
		[]Option{
			RawVideoInput(w, h, fps),
			RawAudioInput(rate, 1),
			DisplayRotation(90),
			MapStream("0:v"),
			MapStream("1:a"),
		},
		Preset264Fast(),
		PresetAAC(1),
	)...)
	proc, err := cmd.StartPiped(ctx, 1)
	require.NoError(t, err)

	// Audio and video must be fed concurrently or ffmpeg stalls on one pipe.
	audioDone := make(chan error, 1)
	go func() {
		pcm := make([]byte, rate/fps*2)
		for i := 0; i < frames; i++ {
			for j := 0; j < len(pcm)/2; j++ {
				binary.LittleEndian.PutUint16(pcm[j*2:], uint16(int16(j*50)))
			}
			if _, err := proc.ExtraPipe(0).Write(pcm); err != nil {
				audioDone <- err
				return
			}
		}
		audioDone <- proc.ExtraPipe(0).Close()
	}()

	frame := make([]byte, w*h*4)
	for i := 0; i < frames; i++ {
		for p := 0; p < len(frame); p += 4 {
			frame[p], frame[p+1], frame[p+2], frame[p+3] = byte(i*10), 80, 160, 255
		}
		_, err := proc.Stdin().Write(frame)
		require.NoError(t, err)
	}
	require.NoError(t, <-audioDone)
	require.NoError(t, proc.CloseInputs())
	require.NoError(t, proc.Wait(), proc.Stderr())

	result, err := Probe(ctx, output)
	require.NoError(t, err)
	assert.Equal(t, w, result.Width)
	assert.Equal(t, h, result.Height)
	assert.Equal(t, "h264", result.VideoCodec)
	assert.Equal(t, "aac", result.AudioCodec)
	assert.Equal(t, 1, result.VideoStreams)
	assert.Equal(t, 1, result.AudioStreams)
	assert.InDelta(t, 2.0, result.Duration, 0.5)
	assert.NotZero(t, result.Rotation)
}

func TestIntegration_ProcessKill(t *testing.T) {
	requireFFmpeg(t)

	output := filepath.Join(t.TempDir(), "never_finish.mov")

	cmd := NewCommand(output, RawVideoInput(64, 48, 30), NoAudio)
	proc, err := cmd.StartPiped(context.Background(), 0)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, proc.Kill())

	err = proc.Wait()
	var ffErr *Error
	assert.ErrorAs(t, err, &ffErr)
	_ = proc.CloseInputs()
	_ = os.Remove(output)
}
