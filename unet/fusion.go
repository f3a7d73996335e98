package unet

import (
	"fmt"

	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/tced/base"
)

// ResizeKind is how a cached encoder output is brought to the decoder's
// spatial size.
type ResizeKind int

const (
	ResizeNone   ResizeKind = iota // same size, concatenate as is
	ResizePool                     // larger, max pool by whole factors
	ResizeRepeat                   // smaller, nearest upsample by whole factors
)

func (k ResizeKind) String() string {
	switch k {
	case ResizeNone:
		return "none"
	case ResizePool:
		return "pool"
	case ResizeRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("ResizeKind(%d)", int(k))
	}
}

// Resize is a resize step with whole vertical and horizontal factors.
type Resize struct {
	Kind    ResizeKind
	FactorH int64
	FactorW int64
}

func (r Resize) String() string {
	if r.Kind == ResizeNone {
		return r.Kind.String()
	}
	return fmt.Sprintf("%v(%v,%v)", r.Kind, r.FactorH, r.FactorW)
}

// OutSize returns the size of a s-sized map after the resize.
func (r Resize) OutSize(s Size) Size {
	switch r.Kind {
	case ResizePool:
		return Size{s.H / r.FactorH, s.W / r.FactorW}
	case ResizeRepeat:
		return Size{s.H * r.FactorH, s.W * r.FactorW}
	default:
		return s
	}
}

// Apply resizes x ([B C H W]) into a new tensor. For ResizeNone it returns
// x itself.
func (r Resize) Apply(x *ts.Tensor) *ts.Tensor {
	switch r.Kind {
	case ResizePool:
		return base.MaxPool2d(x, r.FactorH, r.FactorW)
	case ResizeRepeat:
		return base.RepeatUpsample(x, r.FactorH, r.FactorW)
	default:
		return x
	}
}

// PlanResize decides how a skip map of size layer is reconciled with a
// primary map of size primary. Both ratios must be whole numbers in the
// same direction; anything else is a *ShapeError.
func PlanResize(primary, layer Size) (Resize, error) {
	r, reason := planResize(primary, layer)
	if reason != "" {
		return r, &ShapeError{Depth: -1, Layer: -1, Primary: primary, Skip: layer, Reason: reason}
	}
	return r, nil
}

func planResize(primary, layer Size) (Resize, string) {
	if primary.H <= 0 || primary.W <= 0 || layer.H <= 0 || layer.W <= 0 {
		return Resize{}, "empty spatial dimension"
	}

	var r Resize
	switch {
	case primary == layer:
		return Resize{Kind: ResizeNone, FactorH: 1, FactorW: 1}, ""
	case layer.H > primary.H && layer.W > primary.W:
		if layer.H%primary.H != 0 || layer.W%primary.W != 0 {
			return Resize{}, fmt.Sprintf("downsampling ratio %d/%d x %d/%d is not whole", layer.H, primary.H, layer.W, primary.W)
		}
		r = Resize{Kind: ResizePool, FactorH: layer.H / primary.H, FactorW: layer.W / primary.W}
	case layer.H < primary.H && layer.W < primary.W:
		if primary.H%layer.H != 0 || primary.W%layer.W != 0 {
			return Resize{}, fmt.Sprintf("upsampling ratio %d/%d x %d/%d is not whole", primary.H, layer.H, primary.W, layer.W)
		}
		r = Resize{Kind: ResizeRepeat, FactorH: primary.H / layer.H, FactorW: primary.W / layer.W}
	default:
		return Resize{}, "height and width ratios point in different directions"
	}

	if got := r.OutSize(layer); got != primary {
		return Resize{}, fmt.Sprintf("%v resize gives %v", r, got)
	}

	return r, ""
}

// Plan lists, for every decoder depth, the resize applied to each cached
// encoder output (indexed [decoder depth][encoder depth]).
type Plan [Depth][Depth]Resize

// Plan computes the fusion plan for the configured input size. It fails
// with a *ShapeError on any stage the decoder could not fuse.
func (c Config) Plan() (Plan, error) {
	var plan Plan
	for d := 0; d < Depth; d++ {
		primary := Size{c.Height() >> uint(d), c.Width() >> uint(d)}
		for k := 0; k < Depth; k++ {
			layer := Size{c.Height() >> uint(k), c.Width() >> uint(k)}
			r, reason := planResize(primary, layer)
			if reason != "" {
				return plan, &ShapeError{Depth: d, Layer: k, Primary: primary, Skip: layer, Reason: reason}
			}
			plan[d][k] = r
		}
	}

	return plan, nil
}

// SkipFusion concatenates, along channels, primary with every layer in
// order after resizing each layer to primary's height and width. Tensors
// are [B C H W]; inputs are not freed.
func SkipFusion(primary *ts.Tensor, layers []*ts.Tensor) (*ts.Tensor, error) {
	return fuse(-1, primary, layers)
}

func fuse(depth int, primary *ts.Tensor, layers []*ts.Tensor) (*ts.Tensor, error) {
	target := spatial(primary)
	parts := []ts.Tensor{*primary}
	var resized []*ts.Tensor
	release := func() {
		for _, x := range resized {
			x.MustDrop()
		}
	}

	for i, layer := range layers {
		if layer == nil {
			release()
			return nil, &ShapeError{Depth: depth, Layer: i, Primary: target, Reason: "missing encoder output"}
		}

		size := spatial(layer)
		r, reason := planResize(target, size)
		if reason != "" {
			release()
			return nil, &ShapeError{Depth: depth, Layer: i, Primary: target, Skip: size, Reason: reason}
		}

		if r.Kind == ResizeNone {
			parts = append(parts, *layer)
			continue
		}

		x := r.Apply(layer)
		resized = append(resized, x)
		if got := spatial(x); got != target {
			release()
			return nil, &ShapeError{Depth: depth, Layer: i, Primary: target, Skip: size, Got: got, Reason: fmt.Sprintf("%v resize gives %v", r, got)}
		}
		parts = append(parts, *x)
	}

	out := ts.MustCat(parts, 1)
	release()

	return out, nil
}

// spatial returns height and width of a [B C H W] tensor.
func spatial(x *ts.Tensor) Size {
	size := x.MustSize()
	return Size{size[2], size[3]}
}
