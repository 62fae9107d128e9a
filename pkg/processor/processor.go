// Package processor threads images through filter stages.
package processor

import (
	"image"
	"time"

	"github.com/disintegration/imaging"

	"thirdcoast.systems/camerakit/pkg/filters"
)

// Observer receives the time spent in each stage.
type Observer interface {
	ObserveStage(kind filters.Kind, d time.Duration)
}

// Processor applies chains and stages to single images. The zero value is
// ready to use.
type Processor struct {
	observer Observer
}

// Option configures a Processor.
type Option func(*Processor)

// WithObserver reports per-stage timings to o.
func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

// New creates a Processor.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Apply runs img through every stage of chain in slot order. It returns
// false when img is nil or the result has an empty extent; callers treat
// that as nothing to show, not as a failure.
func (p *Processor) Apply(chain *filters.Chain, img image.Image) (image.Image, bool) {
	if chain == nil {
		return p.ApplyStages(img)
	}
	return p.ApplyStages(img, chain.Stages()...)
}

// ApplyStages runs img through stages in order. With no stages the input
// is returned unchanged.
func (p *Processor) ApplyStages(img image.Image, stages ...filters.Stage) (image.Image, bool) {
	if filters.IsEmpty(img) {
		return nil, false
	}

	out := img
	for _, stage := range stages {
		if stage == nil {
			continue
		}
		start := time.Now()
		out = stage.Apply(out)
		if p.observer != nil {
			p.observer.ObserveStage(stage.Kind(), time.Since(start))
		}
		if filters.IsEmpty(out) {
			return nil, false
		}
	}
	return out, true
}

// Preview returns a copy of img whose longest side is at most maxSide.
// Images already within bounds are returned unchanged.
func Preview(img image.Image, maxSide int) image.Image {
	if filters.IsEmpty(img) || maxSide <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}
