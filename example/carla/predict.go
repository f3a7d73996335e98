package main

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/tced/checkpoint"
	"github.com/sugarme/tced/imageio"
	"github.com/sugarme/tced/metric"
	"github.com/sugarme/tced/unet"
)

// checkpointPath returns dir itself when it names a weight file, otherwise
// the latest checkpoint in it.
func checkpointPath(dir string) (string, error) {
	if filepath.Ext(dir) == checkpoint.Ext {
		return dir, nil
	}

	return checkpoint.Latest(dir)
}

// loadModel builds the network and loads its weights for inference.
func loadModel(logger *slog.Logger) (*unet.Network, error) {
	vs, net, err := newModel(logger)
	if err != nil {
		return nil, err
	}

	path, err := checkpointPath(CkptDir)
	if err != nil {
		return nil, err
	}
	if _, err := checkpoint.Load(vs, path, checkpoint.ModeCheckpoint); err != nil {
		return nil, err
	}
	logger.Info("weights loaded", "checkpoint", path, "params", checkpoint.NumParams(vs))

	return net, nil
}

// forwardImage runs img, resized to the network input size, through net
// in eval mode and returns its logits.
func forwardImage(net *unet.Network, img image.Image) (*ts.Tensor, error) {
	cfg := net.Config()
	input := imageio.ToTensor(img, int(cfg.Height()), int(cfg.Width())).MustTo(Device, true)
	defer input.MustDrop()

	var (
		logits *ts.Tensor
		err    error
	)
	ts.NoGrad(func() {
		logits, err = net.Forward(input, false)
	})

	return logits, err
}

func runPredict(logger *slog.Logger) error {
	net, err := loadModel(logger)
	if err != nil {
		return err
	}

	img, err := imageio.Read(InputPath)
	if err != nil {
		return err
	}

	logits, err := forwardImage(net, img)
	if err != nil {
		return err
	}
	ids := metric.Predict(logits)
	logits.MustDrop()

	cfg := net.Config()
	mask, err := imageio.Colorize(ids, int(cfg.Height()), int(cfg.Width()))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(OutputDir, 0o755); err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(InputPath), filepath.Ext(InputPath))
	b := img.Bounds()

	maskFile := filepath.Join(OutputDir, fmt.Sprintf("%v_mask.png", stem))
	if err := imageio.SaveMask(maskFile, mask, b.Dx(), b.Dy()); err != nil {
		return err
	}
	overlayFile := filepath.Join(OutputDir, fmt.Sprintf("%v_overlay.png", stem))
	if err := imaging.Save(imageio.Overlay(img, mask, 128), overlayFile); err != nil {
		return err
	}

	logger.Info("prediction saved", "mask", maskFile, "overlay", overlayFile)

	return nil
}
