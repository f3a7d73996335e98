package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sugarme/tced/imageio"
	"github.com/sugarme/tced/metric"
)

// runEval scores the prediction for InputPath against the ground-truth
// mask at MaskPath and writes a per-class report and IoU chart.
func runEval(logger *slog.Logger) error {
	net, err := loadModel(logger)
	if err != nil {
		return err
	}
	cfg := net.Config()

	img, err := imageio.Read(InputPath)
	if err != nil {
		return err
	}
	maskImg, err := imageio.Read(MaskPath)
	if err != nil {
		return err
	}
	target, err := imageio.MaskTensor(maskImg, int(cfg.Height()), int(cfg.Width()), int(cfg.Classes))
	if err != nil {
		return fmt.Errorf("mask %q: %w", MaskPath, err)
	}
	defer target.MustDrop()

	logits, err := forwardImage(net, img)
	if err != nil {
		return err
	}
	defer logits.MustDrop()

	cm := metric.NewConfusionMatrix(int(cfg.Classes))
	if err := cm.AddTensor(logits, target); err != nil {
		return err
	}

	var names []string
	if int(cfg.Classes) == len(imageio.ClassNames) {
		names = imageio.ClassNames
	}

	if err := os.MkdirAll(OutputDir, 0o755); err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(InputPath), filepath.Ext(InputPath))

	reportFile := filepath.Join(OutputDir, fmt.Sprintf("%v_report.csv", stem))
	f, err := os.Create(reportFile)
	if err != nil {
		return err
	}
	if err := metric.WriteCSV(f, cm, names); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	chartFile := filepath.Join(OutputDir, fmt.Sprintf("%v_iou.png", stem))
	if err := metric.PlotIoU(cm, names, chartFile); err != nil {
		return err
	}

	logger.Info("evaluation done",
		"pixel_accuracy", cm.PixelAccuracy(),
		"mean_iou", cm.MeanIoU(),
		"report", reportFile,
		"chart", chartFile,
	)

	return nil
}
