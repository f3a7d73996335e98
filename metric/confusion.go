package metric

import (
	"fmt"
	"math"

	ts "github.com/sugarme/gotch/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ConfusionMatrix counts pixels by (target class, predicted class).
type ConfusionMatrix struct {
	classes int
	m       *mat.Dense
}

// NewConfusionMatrix creates an empty classes x classes matrix.
func NewConfusionMatrix(classes int) *ConfusionMatrix {
	return &ConfusionMatrix{
		classes: classes,
		m:       mat.NewDense(classes, classes, nil),
	}
}

// Classes returns the number of classes.
func (c *ConfusionMatrix) Classes() int {
	return c.classes
}

// Matrix returns the counts; rows are targets, columns predictions.
func (c *ConfusionMatrix) Matrix() mat.Matrix {
	return c.m
}

// Add accumulates pixel-aligned predictions and targets.
func (c *ConfusionMatrix) Add(pred, target []int64) error {
	if len(pred) != len(target) {
		return fmt.Errorf("metric: %d predictions for %d targets", len(pred), len(target))
	}
	for i := range pred {
		p, t := pred[i], target[i]
		if p < 0 || p >= int64(c.classes) || t < 0 || t >= int64(c.classes) {
			return fmt.Errorf("metric: pixel %d: class out of range [0, %d): pred %d, target %d", i, c.classes, p, t)
		}
	}
	for i := range pred {
		r, col := int(target[i]), int(pred[i])
		c.m.Set(r, col, c.m.At(r, col)+1)
	}

	return nil
}

// AddTensor accumulates the argmax of logits ([B H W classes]) against
// target ([B H W]).
func (c *ConfusionMatrix) AddTensor(logits, target *ts.Tensor) error {
	size := logits.MustSize()
	if classes := size[len(size)-1]; classes != int64(c.classes) {
		return fmt.Errorf("metric: logits have %d classes, matrix has %d", classes, c.classes)
	}

	return c.Add(Predict(logits), Labels(target))
}

// Total is the number of pixels counted.
func (c *ConfusionMatrix) Total() float64 {
	return mat.Sum(c.m)
}

// Support returns the number of target pixels per class.
func (c *ConfusionMatrix) Support() []float64 {
	out := make([]float64, c.classes)
	for i := range out {
		out[i] = floats.Sum(mat.Row(nil, i, c.m))
	}
	return out
}

// PixelAccuracy is the fraction of correctly classified pixels.
func (c *ConfusionMatrix) PixelAccuracy() float64 {
	total := c.Total()
	if total == 0 {
		return math.NaN()
	}
	return mat.Trace(c.m) / total
}

// IoU returns intersection over union per class. Classes absent from both
// targets and predictions get NaN.
func (c *ConfusionMatrix) IoU() []float64 {
	out := make([]float64, c.classes)
	for i := range out {
		tp := c.m.At(i, i)
		union := floats.Sum(mat.Row(nil, i, c.m)) + floats.Sum(mat.Col(nil, i, c.m)) - tp
		out[i] = ratio(tp, union)
	}
	return out
}

// Dice returns the Dice coefficient (F1) per class, NaN for absent classes.
func (c *ConfusionMatrix) Dice() []float64 {
	out := make([]float64, c.classes)
	for i := range out {
		tp := c.m.At(i, i)
		sum := floats.Sum(mat.Row(nil, i, c.m)) + floats.Sum(mat.Col(nil, i, c.m))
		out[i] = ratio(2*tp, sum)
	}
	return out
}

// MeanIoU averages IoU over the classes that occur.
func (c *ConfusionMatrix) MeanIoU() float64 {
	return nanMean(c.IoU())
}

// Reset zeroes all counts.
func (c *ConfusionMatrix) Reset() {
	c.m.Zero()
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

func nanMean(vals []float64) float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
