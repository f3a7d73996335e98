package metric

import (
	"fmt"
	"io"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Report tabulates per-class support, IoU and Dice. names label the
// classes; missing names are filled as "class_NN".
func Report(cm *ConfusionMatrix, names []string) dataframe.DataFrame {
	labels := labelsFor(names, cm.Classes())
	support := cm.Support()
	pixels := make([]int, len(support))
	for i, v := range support {
		pixels[i] = int(v)
	}

	return dataframe.New(
		series.New(labels, series.String, "class"),
		series.New(pixels, series.Int, "pixels"),
		series.New(cm.IoU(), series.Float, "iou"),
		series.New(cm.Dice(), series.Float, "dice"),
	)
}

// WriteCSV writes Report(cm, names) as CSV.
func WriteCSV(w io.Writer, cm *ConfusionMatrix, names []string) error {
	return Report(cm, names).WriteCSV(w)
}

// PlotIoU saves a bar chart of per-class IoU to path. The image format
// follows the file extension.
func PlotIoU(cm *ConfusionMatrix, names []string, path string) error {
	labels := labelsFor(names, cm.Classes())
	iou := cm.IoU()

	v := make(plotter.Values, len(iou))
	for i, x := range iou {
		if math.IsNaN(x) {
			x = 0
		}
		v[i] = x
	}

	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = fmt.Sprintf("IoU per class (mean %.4f)", cm.MeanIoU())
	p.Y.Label.Text = "IoU"
	p.Y.Min = 0
	p.Y.Max = 1

	bars, err := plotter.NewBarChart(v, vg.Points(10))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(labels...)

	width := vg.Length(len(labels)) * 0.4 * vg.Inch
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}

	return p.Save(width, 4*vg.Inch, path)
}

func labelsFor(names []string, n int) []string {
	labels := make([]string, n)
	for i := range labels {
		if i < len(names) && names[i] != "" {
			labels[i] = names[i]
			continue
		}
		labels[i] = fmt.Sprintf("class_%02d", i)
	}
	return labels
}
