// Package editor holds a non-destructive editing session over one image.
package editor

import (
	"errors"
	"image"
	"sync"

	"thirdcoast.systems/camerakit/pkg/filters"
	"thirdcoast.systems/camerakit/pkg/processor"
)

// DefaultPreviewMaxSide bounds the longest side of the editing preview.
const DefaultPreviewMaxSide = 1024

// ErrClosed is returned by a sub-session that was already committed or
// cancelled.
var ErrClosed = errors.New("editor: sub-session closed")

// ErrNoImage is returned when the chain reduces the image to nothing.
var ErrNoImage = errors.New("editor: chain produced no image")

// Session owns the committed chain for a source image. Trial edits happen
// on a SubSession holding a deep copy, so the committed chain only changes
// on Commit.
type Session struct {
	mu        sync.Mutex
	source    image.Image
	preview   image.Image
	chain     *filters.Chain
	processor *processor.Processor
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	maxSide   int
	chain     *filters.Chain
	processor *processor.Processor
}

// WithPreviewMaxSide sets the longest side of the low-resolution preview.
func WithPreviewMaxSide(n int) Option {
	return func(o *sessionOptions) { o.maxSide = n }
}

// WithChain starts the session from an existing chain. The chain is cloned.
func WithChain(c *filters.Chain) Option {
	return func(o *sessionOptions) { o.chain = c }
}

// WithProcessor sets the processor used for rendering.
func WithProcessor(p *processor.Processor) Option {
	return func(o *sessionOptions) { o.processor = p }
}

// NewSession starts editing source.
func NewSession(source image.Image, opts ...Option) *Session {
	o := sessionOptions{maxSide: DefaultPreviewMaxSide}
	for _, opt := range opts {
		opt(&o)
	}

	chain := filters.NewChain()
	if o.chain != nil {
		chain = o.chain.Clone()
	}
	p := o.processor
	if p == nil {
		p = processor.New()
	}

	return &Session{
		source:    source,
		preview:   processor.Preview(source, o.maxSide),
		chain:     chain,
		processor: p,
	}
}

// Chain returns a copy of the committed chain.
func (s *Session) Chain() *filters.Chain {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain.Clone()
}

// Render applies the committed chain to the preview image, or to the
// full-resolution source when full is set. The committed chain is applied
// directly so the enhancement memo survives between redraws.
func (s *Session) Render(full bool) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.preview
	if full {
		img = s.source
	}
	return s.render(s.chain, img)
}

// ToggleEnhancement flips the enhancement stage and drops its cache.
// It returns the new enabled state.
func (s *Session) ToggleEnhancement() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.chain.Enhancement()
	enabled := !e.Enabled()
	e.SetEnabled(enabled)
	e.Reset()
	return enabled
}

// Branch opens a sub-session on a deep copy of the committed chain.
func (s *Session) Branch() *SubSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &SubSession{parent: s, chain: s.chain.Clone()}
}

func (s *Session) render(chain *filters.Chain, img image.Image) (image.Image, error) {
	out, ok := s.processor.Apply(chain, img)
	if !ok {
		return nil, ErrNoImage
	}
	return out, nil
}

// SubSession is a trial edit. Its chain is independent of the parent's
// until Commit.
type SubSession struct {
	mu     sync.Mutex
	parent *Session
	chain  *filters.Chain
	closed bool
}

// Chain returns the working chain for in-place edits.
func (b *SubSession) Chain() *filters.Chain {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chain
}

// Preview renders the working chain over the parent's preview image.
func (b *SubSession) Preview() (image.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	b.parent.mu.Lock()
	img := b.parent.preview
	b.parent.mu.Unlock()

	return b.parent.render(b.chain, img)
}

// Commit replaces the parent's chain with the working chain. Memoized
// results travel with it.
func (b *SubSession) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true

	b.parent.mu.Lock()
	b.parent.chain = b.chain.Clone()
	b.parent.mu.Unlock()
	return nil
}

// Cancel discards the working chain.
func (b *SubSession) Cancel() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	b.chain = nil
	return nil
}
