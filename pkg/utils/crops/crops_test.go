package crops

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPixels_Scenario(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 500)
	c := Crop{X: 0.25, Y: 0, Width: 0.5, Height: 1}

	r := c.ToPixels(bounds)
	require.Equal(t, image.Rect(250, 0, 750, 500), r)
	require.Equal(t, 500, r.Dx())
	require.Equal(t, 500, r.Dy())
}

func TestToPixels_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sizes := []image.Rectangle{
		image.Rect(0, 0, 1000, 500),
		image.Rect(0, 0, 480, 640),
		image.Rect(10, 20, 333, 777),
	}

	for _, bounds := range sizes {
		tol := 1 / math.Min(float64(bounds.Dx()), float64(bounds.Dy()))
		for i := 0; i < 200; i++ {
			x := rng.Float64() * 0.9
			y := rng.Float64() * 0.9
			c := Crop{
				X:      x,
				Y:      y,
				Width:  0.05 + rng.Float64()*(0.95-x),
				Height: 0.05 + rng.Float64()*(0.95-y),
			}

			back := FromPixels(bounds, c.ToPixels(bounds))
			assert.InDelta(t, c.X, back.X, tol)
			assert.InDelta(t, c.Y, back.Y, tol)
			assert.InDelta(t, c.Width, back.Width, tol)
			assert.InDelta(t, c.Height, back.Height, tol)
		}
	}
}

func TestClamp(t *testing.T) {
	c := Crop{X: -0.2, Y: 0.5, Width: 0.5, Height: 0.8}.Clamp()
	assert.InDelta(t, 0.0, c.X, 1e-9)
	assert.InDelta(t, 0.3, c.Width, 1e-9)
	assert.InDelta(t, 0.5, c.Height, 1e-9)

	empty := Crop{X: 1.5, Y: 0, Width: 0.2, Height: 1}.Clamp()
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.ToPixels(image.Rect(0, 0, 100, 100)).Empty())
}

func TestForAspectRatio(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		ratio  string
		expect Crop
	}{
		{
			name:   "square from landscape",
			w:      1920,
			h:      1080,
			ratio:  "1:1",
			expect: Crop{X: (1 - 1080.0/1920.0) / 2, Y: 0, Width: 1080.0 / 1920.0, Height: 1},
		},
		{
			name:   "landscape from portrait",
			w:      1080,
			h:      1920,
			ratio:  "16:9",
			expect: Crop{X: 0, Y: (1 - (1080.0/1920.0)/(16.0/9.0)) / 2, Width: 1, Height: (1080.0 / 1920.0) / (16.0 / 9.0)},
		},
		{
			name:   "unknown ratio falls back to full frame",
			w:      100,
			h:      100,
			ratio:  "custom",
			expect: Full(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForAspectRatio(tt.w, tt.h, tt.ratio)
			assert.InDelta(t, tt.expect.X, got.X, 1e-9)
			assert.InDelta(t, tt.expect.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.expect.Width, got.Width, 1e-9)
			assert.InDelta(t, tt.expect.Height, got.Height, 1e-9)
		})
	}
}

func TestSquare(t *testing.T) {
	landscape := Square(1600, 1200)
	r := landscape.ToPixels(image.Rect(0, 0, 1600, 1200))
	assert.Equal(t, r.Dx(), r.Dy())
	assert.Equal(t, 200, r.Min.X)

	portrait := Square(1200, 1600)
	r = portrait.ToPixels(image.Rect(0, 0, 1200, 1600))
	assert.Equal(t, r.Dx(), r.Dy())
	assert.Equal(t, 200, r.Min.Y)

	assert.True(t, Square(0, 10).IsEmpty())
}
