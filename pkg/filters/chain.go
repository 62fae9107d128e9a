package filters

// Chain is the fixed-order stack of stages that makes up an edit:
// enhancement, orientation/crop, tilt-shift, response, color controls,
// text, then stickers. The slot order never changes; only the parameters
// inside a slot do.
//
// A Chain is not safe for concurrent mutation. Share clones instead.
type Chain struct {
	enhancement *Enhancement
	orientation *OrientationCrop
	tiltShift   *TiltShift
	response    *Response
	color       *ColorControls
	text        *Text
	stickers    []*Sticker
}

// NewChain returns a chain whose every slot is the identity.
func NewChain() *Chain {
	return &Chain{
		enhancement: NewEnhancement(),
		orientation: NewOrientationCrop(),
		tiltShift:   NewTiltShift(),
		response:    NewResponse(),
		color:       NewColorControls(),
		text:        NewText(),
	}
}

func (c *Chain) Enhancement() *Enhancement         { return c.enhancement }
func (c *Chain) OrientationCrop() *OrientationCrop { return c.orientation }
func (c *Chain) TiltShift() *TiltShift             { return c.tiltShift }
func (c *Chain) Response() *Response               { return c.response }
func (c *Chain) ColorControls() *ColorControls     { return c.color }
func (c *Chain) Text() *Text                       { return c.text }

// Stickers returns the sticker overlays in drawing order.
func (c *Chain) Stickers() []*Sticker {
	out := make([]*Sticker, len(c.stickers))
	copy(out, c.stickers)
	return out
}

// AddSticker appends an overlay on top of the existing ones.
func (c *Chain) AddSticker(s *Sticker) {
	if s == nil {
		return
	}
	c.stickers = append(c.stickers, s)
}

// RemoveSticker removes the overlay at index i.
func (c *Chain) RemoveSticker(i int) bool {
	if i < 0 || i >= len(c.stickers) {
		return false
	}
	c.stickers = append(c.stickers[:i:i], c.stickers[i+1:]...)
	return true
}

// Stages returns the stages in execution order.
func (c *Chain) Stages() []Stage {
	stages := make([]Stage, 0, 6+len(c.stickers))
	stages = append(stages,
		c.enhancement,
		c.orientation,
		c.tiltShift,
		c.response,
		c.color,
		c.text,
	)
	for _, s := range c.stickers {
		stages = append(stages, s)
	}
	return stages
}

// Clone returns a deep copy. Edits to the copy never reach c.
func (c *Chain) Clone() *Chain {
	cp := &Chain{
		enhancement: c.enhancement.Clone().(*Enhancement),
		orientation: c.orientation.Clone().(*OrientationCrop),
		tiltShift:   c.tiltShift.Clone().(*TiltShift),
		response:    c.response.Clone().(*Response),
		color:       c.color.Clone().(*ColorControls),
		text:        c.text.Clone().(*Text),
	}
	if len(c.stickers) > 0 {
		cp.stickers = make([]*Sticker, len(c.stickers))
		for i, s := range c.stickers {
			cp.stickers[i] = s.Clone().(*Sticker)
		}
	}
	return cp
}
