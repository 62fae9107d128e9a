package preview

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAspect(t *testing.T) {
	dst := image.Rect(0, 0, 400, 400)
	src := image.Rect(0, 0, 800, 400)

	assert.Equal(t, image.Rect(0, 100, 400, 300), AspectFit(src, dst))
	assert.Equal(t, image.Rect(-200, 0, 600, 400), AspectFill(src, dst))

	tall := image.Rect(0, 0, 300, 600)
	assert.Equal(t, image.Rect(100, 0, 300, 400), AspectFit(tall, dst))
	assert.Equal(t, image.Rect(0, -200, 400, 600), AspectFill(tall, dst))

	assert.Equal(t, image.Rectangle{}, AspectFit(image.Rectangle{}, dst))
}

func TestSurface_FitLetterboxes(t *testing.T) {
	s := NewSurface(40, 40, ContentFit)
	s.Draw(imaging.New(80, 40, color.NRGBA{R: 255, A: 255}))

	snap := s.Snapshot()
	assert.Equal(t, color.RGBA{A: 255}, snap.RGBAAt(20, 2), "letterbox bar")
	assert.Greater(t, snap.RGBAAt(20, 20).R, uint8(250))
	assert.Equal(t, uint64(1), s.Frames())
}

func TestSurface_FillCovers(t *testing.T) {
	s := NewSurface(40, 40, ContentFill)
	s.Draw(imaging.New(80, 40, color.NRGBA{G: 255, A: 255}))

	snap := s.Snapshot()
	assert.Greater(t, snap.RGBAAt(20, 1).G, uint8(250))
	assert.Greater(t, snap.RGBAAt(1, 20).G, uint8(250))
}

func TestSurface_Transition(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewSurface(10, 10, ContentFill)
	s.now = func() time.Time { return now }

	s.Draw(imaging.New(10, 10, color.NRGBA{R: 255, A: 255}))
	s.BeginTransition()
	assert.True(t, s.Transitioning())

	// Halfway: the red snapshot still shows through the blue frame.
	now = now.Add(TransitionDuration / 2)
	s.Draw(imaging.New(10, 10, color.NRGBA{B: 255, A: 255}))
	mid := s.Snapshot().RGBAAt(5, 5)
	assert.Greater(t, mid.R, uint8(50))
	assert.Greater(t, mid.B, uint8(50))

	now = now.Add(TransitionDuration)
	s.Draw(imaging.New(10, 10, color.NRGBA{B: 255, A: 255}))
	assert.False(t, s.Transitioning())
	final := s.Snapshot().RGBAAt(5, 5)
	assert.Greater(t, final.B, uint8(250))
	assert.Less(t, final.R, uint8(5))
}

func TestSurface_JPEG(t *testing.T) {
	s := NewSurface(16, 9, ContentFit)
	var buf bytes.Buffer
	require.NoError(t, s.JPEG(&buf, 80))

	img, err := imaging.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 9), img.Bounds())
}

func TestParseContentMode(t *testing.T) {
	m, err := ParseContentMode("FILL")
	require.NoError(t, err)
	assert.Equal(t, ContentFill, m)
	_, err = ParseContentMode("stretch")
	assert.Error(t, err)
}
