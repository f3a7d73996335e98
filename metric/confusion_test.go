package metric_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/tced/metric"
)

func TestConfusionMatrix(t *testing.T) {
	pred := []int64{1, 0, 0, 1, 0, 0, 1, 0, 0}
	target := []int64{1, 0, 0, 1, 1, 0, 1, 0, 0}

	cm := metric.NewConfusionMatrix(3)
	require.NoError(t, cm.Add(pred, target))

	assert.Equal(t, 9.0, cm.Total())
	assert.InDelta(t, 8.0/9.0, cm.PixelAccuracy(), 1e-9)
	assert.Equal(t, []float64{5, 4, 0}, cm.Support())

	iou := cm.IoU()
	assert.InDelta(t, 5.0/6.0, iou[0], 1e-9)
	assert.InDelta(t, 0.75, iou[1], 1e-9)
	assert.True(t, math.IsNaN(iou[2]))

	dice := cm.Dice()
	assert.InDelta(t, 10.0/11.0, dice[0], 1e-9)
	assert.InDelta(t, 6.0/7.0, dice[1], 1e-9)

	assert.InDelta(t, (5.0/6.0+0.75)/2, cm.MeanIoU(), 1e-9)

	cm.Reset()
	assert.Equal(t, 0.0, cm.Total())
	assert.True(t, math.IsNaN(cm.PixelAccuracy()))
}

func TestConfusionMatrixRejects(t *testing.T) {
	cm := metric.NewConfusionMatrix(2)
	assert.Error(t, cm.Add([]int64{0}, []int64{0, 1}))
	assert.Error(t, cm.Add([]int64{0, 2}, []int64{0, 1}))
	assert.Error(t, cm.Add([]int64{0, -1}, []int64{0, 1}))
	// Nothing counted from the rejected batches.
	assert.Equal(t, 0.0, cm.Total())
}

func TestReport(t *testing.T) {
	cm := metric.NewConfusionMatrix(3)
	require.NoError(t, cm.Add([]int64{0, 1, 1}, []int64{0, 1, 0}))

	df := metric.Report(cm, []string{"Unlabeled", "Building"})
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, []string{"class", "pixels", "iou", "dice"}, df.Names())
	assert.Equal(t, []string{"Unlabeled", "Building", "class_02"}, df.Col("class").Records())

	var buf bytes.Buffer
	require.NoError(t, metric.WriteCSV(&buf, cm, nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "class,pixels,iou,dice", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "class_00,2,"))
}

func TestPlotIoU(t *testing.T) {
	cm := metric.NewConfusionMatrix(3)
	require.NoError(t, cm.Add([]int64{0, 1, 1}, []int64{0, 1, 0}))

	path := filepath.Join(t.TempDir(), "iou.png")
	require.NoError(t, metric.PlotIoU(cm, nil, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.Size() > 0)
}
