package unet

import (
	"fmt"
	"log/slog"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/tced/base"
	"github.com/sugarme/tced/encoder"
)

// DecoderLayer upsamples by 2, fuses the whole encoder cache and refines
// the result with two conv + ReLU.
type DecoderLayer struct {
	Depth  int
	UpConv *nn.ConvTranspose2D
	Conv1  *nn.SequentialT
	Conv2  *nn.SequentialT
}

// NewDecoderLayer creates a DecoderLayer at depth. cIn is the channel count
// of the previous stage, skip the channels added by fusion and cOut the
// stage width.
func NewDecoderLayer(p *nn.Path, depth int, cIn, skip, cOut, ksize int64) *DecoderLayer {
	return &DecoderLayer{
		Depth:  depth,
		UpConv: base.UpConv2d(p.Sub("upconv"), cIn, cOut, ksize),
		Conv1:  base.Conv2dRelu(p.Sub("conv1"), cOut+skip, cOut, ksize),
		Conv2:  base.Conv2dRelu(p.Sub("conv2"), cOut, cOut, ksize),
	}
}

// ForwardSkip upsamples x, fuses it with the cache and forwards it through
// the two convolutions.
func (d *DecoderLayer) ForwardSkip(x *ts.Tensor, cache *encoder.Cache, train bool) (*ts.Tensor, error) {
	up := d.UpConv.Forward(x)
	cat, err := fuse(d.Depth, up, cache.Layers())
	up.MustDrop()
	if err != nil {
		return nil, err
	}

	conv1 := d.Conv1.ForwardT(cat, train)
	cat.MustDrop()
	conv2 := d.Conv2.ForwardT(conv1, train)
	conv1.MustDrop()

	return conv2, nil
}

// CenterLayer is the bottleneck: two conv + ReLU, no resizing.
type CenterLayer struct {
	Conv1 *nn.SequentialT
	Conv2 *nn.SequentialT
}

// ForwardT implements ts.ModuleT interface for CenterLayer struct.
func (c *CenterLayer) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	c1 := c.Conv1.ForwardT(x, train)
	c2 := c.Conv2.ForwardT(c1, train)
	c1.MustDrop()

	return c2
}

// NewCenterLayer creates new CenterLayer.
func NewCenterLayer(p *nn.Path, cIn, cOut, ksize int64) *CenterLayer {
	conv1 := base.Conv2dRelu(p.Sub("conv1"), cIn, cOut, ksize)
	conv2 := base.Conv2dRelu(p.Sub("conv2"), cOut, cOut, ksize)

	return &CenterLayer{conv1, conv2}
}

// UNetDecoder is the bottleneck plus the decoder stages, indexed by depth.
type UNetDecoder struct {
	center *CenterLayer
	layers [Depth]*DecoderLayer
	logger *slog.Logger
}

// NewUNetDecoder creates UNetDecoder.
func NewUNetDecoder(p *nn.Path, cfg Config, logger *slog.Logger) *UNetDecoder {
	k := cfg.KernelSize
	center := NewCenterLayer(p.Sub("center"), cfg.FiltersAt(Depth-1), cfg.FiltersAt(Depth), k)

	var layers [Depth]*DecoderLayer
	in := cfg.FiltersAt(Depth)
	for d := Depth - 1; d >= 0; d-- {
		out := cfg.FiltersAt(d)
		layers[d] = NewDecoderLayer(p.Sub(fmt.Sprintf("decoder%d", d)), d, in, cfg.SkipChannels(), out, k)
		in = out
	}

	return &UNetDecoder{
		center: center,
		layers: layers,
		logger: logger,
	}
}

// Layer returns the decoder stage at depth d.
func (n *UNetDecoder) Layer(d int) *DecoderLayer {
	return n.layers[d]
}

// ForwardFeatures runs the bottleneck on x, the deepest encoder output,
// then decodes depths 3 to 0 against cache. x and cache are not freed.
func (n *UNetDecoder) ForwardFeatures(x *ts.Tensor, cache *encoder.Cache, train bool) (*ts.Tensor, error) {
	z := n.center.ForwardT(x, train)
	n.logger.Debug("stage", "name", "bottleneck", "depth", Depth, "shape", z.MustSize())

	for d := Depth - 1; d >= 0; d-- {
		next, err := n.layers[d].ForwardSkip(z, cache, train)
		z.MustDrop()
		if err != nil {
			return nil, err
		}
		z = next
		n.logger.Debug("stage", "name", "decoder", "depth", d, "shape", z.MustSize())
	}

	return z, nil
}
