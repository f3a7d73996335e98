package encoder

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/tced/base"
)

// Stage is one encoder block: two conv + ReLU, a 2x2 max pool and an
// optional dropout applied in training mode only.
type Stage struct {
	Depth   int
	Filters int64
	Conv1   *nn.SequentialT
	Conv2   *nn.SequentialT
	Dropout ts.ModuleT // nil when the dropout rate is zero
}

// NewStage creates a Stage at depth with filters output channels.
func NewStage(p *nn.Path, depth int, cIn, filters, ksize int64, dropoutRate float64) *Stage {
	return &Stage{
		Depth:   depth,
		Filters: filters,
		Conv1:   base.Conv2dRelu(p.Sub("conv1"), cIn, filters, ksize),
		Conv2:   base.Conv2dRelu(p.Sub("conv2"), filters, filters, ksize),
		Dropout: base.NewDropout(dropoutRate),
	}
}

// ForwardSkip returns the downsampled output and the pre-downsampling
// skip output. x is left untouched.
func (s *Stage) ForwardSkip(x *ts.Tensor, train bool) (down, skip *ts.Tensor) {
	c1 := s.Conv1.ForwardT(x, train)
	skip = s.Conv2.ForwardT(c1, train)
	c1.MustDrop()

	pooled := base.MaxPool2d(skip, 2, 2)
	if s.Dropout == nil || !train {
		return pooled, skip
	}

	down = s.Dropout.ForwardT(pooled, train)
	pooled.MustDrop()

	return down, skip
}
