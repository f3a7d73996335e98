package encoder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/tced/base"
	"github.com/sugarme/tced/encoder"
)

func TestFilters(t *testing.T) {
	for d, want := range []int64{32, 64, 128, 256, 512} {
		assert.Equal(t, want, encoder.Filters(32, d), "depth %d", d)
	}
}

func TestStageForwardSkip(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	s := encoder.NewStage(vs.Root(), 1, 32, 64, 3, 0.3)

	x := ts.MustRand([]int64{2, 32, 48, 64}, gotch.Float, gotch.CPU)
	for _, train := range []bool{false, true} {
		down, skip := s.ForwardSkip(x, train)
		assert.Equal(t, []int64{2, 64, 48, 64}, skip.MustSize())
		assert.Equal(t, []int64{2, 64, 24, 32}, down.MustSize())
		down.MustDrop()
		skip.MustDrop()
	}

	x.MustDrop()
}

func TestStageDropoutOnlyInTraining(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	s := encoder.NewStage(vs.Root(), 0, 3, 8, 3, 0.5)
	require.NotNil(t, s.Dropout)

	x := ts.MustOnes([]int64{2, 3, 16, 16}, gotch.Float, gotch.CPU)

	ts.NoGrad(func() {
		// Evaluation: down is the plain max pool of skip.
		down, skip := s.ForwardSkip(x, false)
		pooled := base.MaxPool2d(skip, 2, 2)
		assert.Equal(t, pooled.MustTotype(gotch.Double, true).Float64Values(), down.MustTotype(gotch.Double, true).Float64Values())
		skip.MustDrop()

		// Training: every pooled value is zeroed or doubled.
		down, skip = s.ForwardSkip(x, true)
		pooled = base.MaxPool2d(skip, 2, 2)
		want := pooled.MustTotype(gotch.Double, true).Float64Values()
		got := down.MustTotype(gotch.Double, true).Float64Values()
		require.Len(t, got, len(want))

		var zeroed int
		for i, v := range got {
			if v == 0 {
				if want[i] != 0 {
					zeroed++
				}
				continue
			}
			assert.InDelta(t, 2*want[i], v, 1e-4, "element %d", i)
		}
		assert.Greater(t, zeroed, 0)
		skip.MustDrop()
	})

	x.MustDrop()
}

func TestStageWithoutDropout(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	s := encoder.NewStage(vs.Root(), 0, 3, 8, 3, 0)
	require.Nil(t, s.Dropout)

	x := ts.MustRand([]int64{1, 3, 16, 16}, gotch.Float, gotch.CPU)
	down, skip := s.ForwardSkip(x, true)
	assert.Equal(t, []int64{1, 8, 8, 8}, down.MustSize())

	x.MustDrop()
	down.MustDrop()
	skip.MustDrop()
}

func TestStackEncoderChannelInvariant(t *testing.T) {
	vs := nn.NewVarStore(gotch.CPU)
	enc := encoder.NewStackEncoder(vs.Root(), 3, 32, 3, 0.3)

	x := ts.MustZeros([]int64{1, 3, 96, 128}, gotch.Float, gotch.CPU)
	out, cache := enc.ForwardAll(x, false)

	for d, layer := range cache.Layers() {
		require.NotNil(t, layer, "depth %d", d)
		size := layer.MustSize()
		assert.Equal(t, encoder.Filters(32, d), size[1], "channels at depth %d", d)
		assert.Equal(t, int64(96>>uint(d)), size[2], "height at depth %d", d)
		assert.Equal(t, int64(128>>uint(d)), size[3], "width at depth %d", d)
		assert.Equal(t, d, enc.Stage(d).Depth)
	}
	assert.Equal(t, []int64{1, 256, 6, 8}, out.MustSize())

	cache.Drop()
	for _, layer := range cache {
		assert.Nil(t, layer)
	}

	x.MustDrop()
	out.MustDrop()
}
