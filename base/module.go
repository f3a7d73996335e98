package base

import (
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"
)

// SamePadding returns the padding that keeps height and width unchanged
// for an odd kernel size at stride 1.
func SamePadding(ksize int64) int64 {
	return ksize / 2
}

// Conv2d creates Conv2D module.
func Conv2d(p *nn.Path, cIn, cOut, ksize, padding, stride int64) *nn.Conv2D {
	config := nn.DefaultConv2DConfig()
	config.Stride = []int64{stride, stride}
	config.Padding = []int64{padding, padding}

	return nn.NewConv2D(p, cIn, cOut, ksize, config)
}

// Conv2dRelu creates a SequentialT composing of a 'same' padded Conv2D and a ReLU activation.
func Conv2dRelu(p *nn.Path, cIn, cOut, ksize int64) *nn.SequentialT {
	seq := nn.SeqT()
	seq.Add(Conv2d(p.Sub("conv"), cIn, cOut, ksize, SamePadding(ksize), 1))
	seq.AddFn(nn.NewFunc(func(xs *ts.Tensor) *ts.Tensor {
		return xs.MustRelu(false)
	}))

	return seq
}

// UpConv2d creates a stride-2 transposed convolution with 'same' padding.
// Output height and width are exactly twice the input's.
func UpConv2d(p *nn.Path, cIn, cOut, ksize int64) *nn.ConvTranspose2D {
	pad := SamePadding(ksize)
	config := &nn.ConvTranspose2DConfig{
		Stride:  []int64{2, 2},
		Padding: []int64{pad, pad},
		// (H-1)*2 - 2*pad + ksize + 1 = 2H for odd ksize.
		OutputPadding: []int64{1, 1},
		Dilation:      []int64{1, 1},
		Groups:        1,
		Bias:          true,
		WsInit:        nn.NewKaimingUniformInit(),
		BsInit:        nn.NewConstInit(0),
	}

	return nn.NewConvTranspose2D(p, cIn, cOut, []int64{ksize, ksize}, config)
}

// MaxPool2d downsamples x ([B C H W]) with a (kh, kw) window and matching stride.
func MaxPool2d(x *ts.Tensor, kh, kw int64) *ts.Tensor {
	return x.MustMaxPool2d([]int64{kh, kw}, []int64{kh, kw}, []int64{0, 0}, []int64{1, 1}, false, false)
}

// RepeatUpsample upsamples x ([B C H W]) by whole factors using `nearest`
// interpolation, i.e. every pixel is repeated fh times vertically and fw
// times horizontally.
func RepeatUpsample(x *ts.Tensor, fh, fw int64) *ts.Tensor {
	size := x.MustSize()
	outSize := []int64{size[2] * fh, size[3] * fw}

	return x.MustUpsampleNearest2d(outSize, nil, nil, false)
}

// NewDropout creates a dropout module zeroing activations with probability
// rate in training mode only. It returns nil when rate is zero.
func NewDropout(rate float64) ts.ModuleT {
	if rate <= 0 {
		return nil
	}

	return nn.NewFuncT(func(xs *ts.Tensor, train bool) *ts.Tensor {
		return ts.MustDropout(xs, rate, train)
	})
}
