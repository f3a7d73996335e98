package unet_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/tced/unet"
)

func TestPlanResize(t *testing.T) {
	tests := []struct {
		name    string
		primary unet.Size
		layer   unet.Size
		want    unet.Resize
	}{
		{"equal", unet.Size{H: 12, W: 16}, unet.Size{H: 12, W: 16}, unet.Resize{Kind: unet.ResizeNone, FactorH: 1, FactorW: 1}},
		{"pool by 2", unet.Size{H: 12, W: 16}, unet.Size{H: 24, W: 32}, unet.Resize{Kind: unet.ResizePool, FactorH: 2, FactorW: 2}},
		{"pool by 8", unet.Size{H: 12, W: 16}, unet.Size{H: 96, W: 128}, unet.Resize{Kind: unet.ResizePool, FactorH: 8, FactorW: 8}},
		{"repeat by 8", unet.Size{H: 96, W: 128}, unet.Size{H: 12, W: 16}, unet.Resize{Kind: unet.ResizeRepeat, FactorH: 8, FactorW: 8}},
		{"uneven factors", unet.Size{H: 10, W: 10}, unet.Size{H: 30, W: 20}, unet.Resize{Kind: unet.ResizePool, FactorH: 3, FactorW: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unet.PlanResize(tt.primary, tt.layer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.primary, got.OutSize(tt.layer))
		})
	}
}

func TestPlanResizeRejects(t *testing.T) {
	tests := []struct {
		name    string
		primary unet.Size
		layer   unet.Size
	}{
		{"fractional ratio", unet.Size{H: 10, W: 10}, unet.Size{H: 15, W: 15}},
		{"fractional upsampling", unet.Size{H: 15, W: 15}, unet.Size{H: 10, W: 10}},
		{"height only", unet.Size{H: 12, W: 16}, unet.Size{H: 24, W: 16}},
		{"mixed directions", unet.Size{H: 12, W: 16}, unet.Size{H: 6, W: 32}},
		{"empty", unet.Size{H: 0, W: 16}, unet.Size{H: 12, W: 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unet.PlanResize(tt.primary, tt.layer)
			require.Error(t, err)

			var se *unet.ShapeError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.primary, se.Primary)
			assert.Equal(t, tt.layer, se.Skip)
			assert.Equal(t, -1, se.Depth)
		})
	}
}

func TestConfigPlan(t *testing.T) {
	plan, err := unet.DefaultConfig().Plan()
	require.NoError(t, err)

	pool := func(f int64) unet.Resize { return unet.Resize{Kind: unet.ResizePool, FactorH: f, FactorW: f} }
	repeat := func(f int64) unet.Resize { return unet.Resize{Kind: unet.ResizeRepeat, FactorH: f, FactorW: f} }
	none := unet.Resize{Kind: unet.ResizeNone, FactorH: 1, FactorW: 1}

	assert.Equal(t, [unet.Depth]unet.Resize{pool(8), pool(4), pool(2), none}, plan[3])
	assert.Equal(t, [unet.Depth]unet.Resize{pool(4), pool(2), none, repeat(2)}, plan[2])
	assert.Equal(t, [unet.Depth]unet.Resize{none, repeat(2), repeat(4), repeat(8)}, plan[0])
}

func TestSkipFusionDownsamples(t *testing.T) {
	primary := ts.MustRand([]int64{1, 8, 12, 16}, gotch.Float, gotch.CPU)
	layer := ts.MustRand([]int64{1, 4, 24, 32}, gotch.Float, gotch.CPU)

	fused, err := unet.SkipFusion(primary, []*ts.Tensor{layer})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 8 + 4, 12, 16}, fused.MustSize())

	primary.MustDrop()
	layer.MustDrop()
	fused.MustDrop()
}

func TestSkipFusionUpsamples(t *testing.T) {
	primary := ts.MustZeros([]int64{1, 32, 96, 128}, gotch.Float, gotch.CPU)
	layer := ts.MustRand([]int64{1, 256, 12, 16}, gotch.Float, gotch.CPU)

	fused, err := unet.SkipFusion(primary, []*ts.Tensor{layer})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 32 + 256, 96, 128}, fused.MustSize())

	// Source pixel (y=3, x=7) of layer channel 5 fills rows 24..31 and
	// columns 56..63 of fused channel 32+5.
	src := layer.MustSelect(1, 5, false).MustTotype(gotch.Double, true).Float64Values()
	dst := fused.MustSelect(1, 32+5, false).MustTotype(gotch.Double, true).Float64Values()
	want := src[3*16+7]
	for y := 24; y < 32; y++ {
		for x := 56; x < 64; x++ {
			require.Equal(t, want, dst[y*128+x], "fused pixel (%d, %d)", y, x)
		}
	}
	assert.NotEqual(t, want, dst[32*128+56], "next block holds another source pixel")

	primary.MustDrop()
	layer.MustDrop()
	fused.MustDrop()
}

func TestSkipFusionRepeatsPixels(t *testing.T) {
	primary := ts.MustZeros([]int64{1, 1, 4, 4}, gotch.Float, gotch.CPU)
	layer := ts.MustOfSlice([]float64{1, 2, 3, 4}).MustView([]int64{1, 1, 2, 2}, true).MustTotype(gotch.Float, true)

	fused, err := unet.SkipFusion(primary, []*ts.Tensor{layer})
	require.NoError(t, err)

	vals := fused.MustTotype(gotch.Double, false).Float64Values()
	want := []float64{
		// primary channel
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		// layer channel, each pixel repeated 2x2
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	assert.Equal(t, want, vals)

	primary.MustDrop()
	layer.MustDrop()
	fused.MustDrop()
}

func TestSkipFusionKeepsCacheOrder(t *testing.T) {
	primary := ts.MustZeros([]int64{1, 1, 2, 2}, gotch.Float, gotch.CPU)
	var layers []*ts.Tensor
	for i, hw := range []int64{4, 2, 1} {
		l := ts.MustOnes([]int64{1, 1, hw, hw}, gotch.Float, gotch.CPU).MustMul1(ts.FloatScalar(float64(i+1)), true)
		layers = append(layers, l)
	}

	fused, err := unet.SkipFusion(primary, layers)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 2, 2}, fused.MustSize())

	vals := fused.MustTotype(gotch.Double, false).Float64Values()
	assert.Equal(t, []float64{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}, vals)

	primary.MustDrop()
	fused.MustDrop()
	for _, l := range layers {
		l.MustDrop()
	}
}

func TestSkipFusionRejectsFractionalRatio(t *testing.T) {
	primary := ts.MustZeros([]int64{1, 2, 10, 10}, gotch.Float, gotch.CPU)
	good := ts.MustZeros([]int64{1, 2, 20, 20}, gotch.Float, gotch.CPU)
	bad := ts.MustZeros([]int64{1, 2, 15, 15}, gotch.Float, gotch.CPU)

	fused, err := unet.SkipFusion(primary, []*ts.Tensor{good, bad})
	require.Error(t, err)
	assert.Nil(t, fused)

	var se *unet.ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Layer)
	assert.Equal(t, unet.Size{H: 10, W: 10}, se.Primary)
	assert.Equal(t, unet.Size{H: 15, W: 15}, se.Skip)

	primary.MustDrop()
	good.MustDrop()
	bad.MustDrop()
}
