package encoder

import (
	"fmt"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// Depth is the number of encoder stages (and of 2x downsamplings).
const Depth = 4

// Filters returns the channel width at a depth: base * 2^depth.
func Filters(base int64, depth int) int64 {
	return base << uint(depth)
}

// Cache holds the pre-downsampling output of every encoder stage, indexed by
// depth. It lives for one forward pass.
type Cache [Depth]*ts.Tensor

// Layers returns cached outputs in depth order.
func (c *Cache) Layers() []*ts.Tensor {
	return c[:]
}

// Drop frees all cached tensors.
func (c *Cache) Drop() {
	for i, x := range c {
		if x != nil {
			x.MustDrop()
			c[i] = nil
		}
	}
}

// Encoder is encoder interface for a image segmentation model.
type Encoder interface {
	// ForwardAll returns the output of the deepest stage together with the
	// skip output of every stage.
	ForwardAll(x *ts.Tensor, train bool) (*ts.Tensor, *Cache)
}

// StackEncoder chains Depth stages, doubling channels and halving height
// and width at every depth.
type StackEncoder struct {
	stages [Depth]*Stage
}

// NewStackEncoder creates a StackEncoder for cIn input channels.
func NewStackEncoder(p *nn.Path, cIn, filters, ksize int64, dropoutRate float64) *StackEncoder {
	var stages [Depth]*Stage
	in := cIn
	for d := 0; d < Depth; d++ {
		out := Filters(filters, d)
		stages[d] = NewStage(p.Sub(fmt.Sprintf("block%d", d)), d, in, out, ksize, dropoutRate)
		in = out
	}

	return &StackEncoder{stages}
}

// Stage returns the stage at depth d.
func (e *StackEncoder) Stage(d int) *Stage {
	return e.stages[d]
}

// ForwardAll implements Encoder interface for StackEncoder.
// x should have shape [B C H W]; it is not freed.
func (e *StackEncoder) ForwardAll(x *ts.Tensor, train bool) (*ts.Tensor, *Cache) {
	cache := new(Cache)
	out := x
	for d, s := range e.stages {
		down, skip := s.ForwardSkip(out, train)
		if d > 0 {
			out.MustDrop()
		}
		cache[d] = skip
		out = down
	}

	return out, cache
}
