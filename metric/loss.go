package metric

import (
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
)

// CrossEntropyLoss is the sparse categorical cross entropy between logits
// shaped [B H W classes] and integer targets shaped [B H W], averaged over
// pixels.
func CrossEntropyLoss(logits, target *ts.Tensor) *ts.Tensor {
	size := logits.MustSize()
	classes := size[len(size)-1]

	logitR := logits.MustReshape([]int64{-1, classes}, false)
	targetR := target.MustReshape([]int64{-1}, false).MustTotype(gotch.Int64, true)

	loss := logitR.CrossEntropyForLogits(targetR)
	logitR.MustDrop()
	targetR.MustDrop()

	return loss
}

// Accuracy is the fraction of pixels whose argmax logit equals the target.
func Accuracy(logits, target *ts.Tensor) float64 {
	size := logits.MustSize()
	classes := size[len(size)-1]

	logitR := logits.MustReshape([]int64{-1, classes}, false)
	targetR := target.MustReshape([]int64{-1}, false).MustTotype(gotch.Int64, true)

	acc := logitR.AccuracyForLogits(targetR).MustTotype(gotch.Double, true)
	val := acc.Float64Values()[0]

	logitR.MustDrop()
	targetR.MustDrop()
	acc.MustDrop()

	return val
}

// Predict returns the argmax class of every pixel of logits shaped
// [B H W classes], in row-major pixel order.
func Predict(logits *ts.Tensor) []int64 {
	size := logits.MustSize()
	classes := int(size[len(size)-1])

	vals := logits.MustTotype(gotch.Double, false)
	data := vals.Float64Values()
	vals.MustDrop()

	return argmax(data, classes)
}

func argmax(data []float64, classes int) []int64 {
	pixels := len(data) / classes
	out := make([]int64, pixels)
	for i := 0; i < pixels; i++ {
		row := data[i*classes : (i+1)*classes]
		best := 0
		for c := 1; c < classes; c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		out[i] = int64(best)
	}

	return out
}

// Labels returns the values of an integer class-id tensor.
func Labels(target *ts.Tensor) []int64 {
	vals := target.MustTotype(gotch.Double, false)
	data := vals.Float64Values()
	vals.MustDrop()

	out := make([]int64, len(data))
	for i, v := range data {
		out[i] = int64(v)
	}

	return out
}
