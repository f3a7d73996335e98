package base

import "github.com/sugarme/gotch/nn"

// NewSegmentationHead creates new SegmentatationHead (nn.SequentialT).
//
// A ksize conv + ReLU at cIn channels followed by a 1x1 projection to
// classes channels. No activation is applied to the projection: the head
// emits raw per-class logits.
func NewSegmentationHead(p *nn.Path, cIn, classes, ksize int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2dRelu(p.Sub("conv"), cIn, cIn, ksize))
	seq.Add(Conv2d(p.Sub("logit"), cIn, classes, 1, 0, 1))

	return seq
}
