package processor

import (
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/camerakit/pkg/filters"
	"thirdcoast.systems/camerakit/pkg/utils/crops"
)

type recordingObserver struct {
	mu    sync.Mutex
	kinds []filters.Kind
}

func (r *recordingObserver) ObserveStage(kind filters.Kind, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func TestApply_EmptyChainReturnsInput(t *testing.T) {
	src := imaging.New(10, 10, color.NRGBA{R: 9, A: 255})
	out, ok := New().Apply(filters.NewChain(), src)
	require.True(t, ok)
	assert.Same(t, src, out)

	out, ok = New().ApplyStages(src)
	require.True(t, ok)
	assert.Same(t, src, out)
}

func TestApply_NilInput(t *testing.T) {
	out, ok := New().Apply(filters.NewChain(), nil)
	assert.False(t, ok)
	assert.Nil(t, out)

	out, ok = New().ApplyStages(image.NewNRGBA(image.Rectangle{}))
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestApply_DegenerateCropIsNoImage(t *testing.T) {
	chain := filters.NewChain()
	chain.OrientationCrop().Crop = crops.Crop{X: 0.2, Y: 0.2, Width: 0, Height: 0}

	out, ok := New().Apply(chain, imaging.New(100, 100, color.NRGBA{A: 255}))
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestApply_ThreadsStagesInOrder(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithObserver(obs))

	chain := filters.NewChain()
	chain.OrientationCrop().Crop = crops.Crop{X: 0.25, Y: 0, Width: 0.5, Height: 1}
	chain.ColorControls().Brightness = 0.1

	out, ok := p.Apply(chain, imaging.New(1000, 500, color.NRGBA{R: 100, G: 100, B: 100, A: 255}))
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 500, 500), out.Bounds())
	assert.Equal(t, filters.KindEnhancement, obs.kinds[0])
	assert.Equal(t, filters.KindText, obs.kinds[len(obs.kinds)-1])
}

func TestApply_CloneDoesNotMutateOriginal(t *testing.T) {
	chain := filters.NewChain()
	chain.ColorControls().Contrast = 1.5
	src := imaging.New(20, 20, color.NRGBA{R: 50, G: 60, B: 70, A: 255})

	p := New()
	cp := chain.Clone()
	cp.ColorControls().Contrast = 0.5
	intermediate, ok := p.Apply(cp, src)
	require.True(t, ok)
	_, ok = p.Apply(chain, intermediate)
	require.True(t, ok)

	assert.Equal(t, 1.5, chain.ColorControls().Contrast)
	assert.Equal(t, uint8(50), src.NRGBAAt(0, 0).R)
}

func TestPreview(t *testing.T) {
	big := imaging.New(4000, 3000, color.NRGBA{A: 255})
	out := Preview(big, 800)
	assert.Equal(t, 800, out.Bounds().Dx())
	assert.Equal(t, 600, out.Bounds().Dy())

	small := imaging.New(100, 50, color.NRGBA{A: 255})
	assert.Same(t, small, Preview(small, 800))
}
