package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/tced/checkpoint"
	"github.com/sugarme/tced/metric"
	"github.com/sugarme/tced/unet"
)

func newModel(logger *slog.Logger) (*nn.VarStore, *unet.Network, error) {
	vs := nn.NewVarStore(Device)
	net, err := unet.New(vs.Root(), modelConfig(), unet.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	return vs, net, nil
}

func runSummary(logger *slog.Logger) error {
	vs, net, err := newModel(logger)
	if err != nil {
		return err
	}

	printVars(vs)

	cfg := net.Config()
	fmt.Printf("input:\t %v\n", cfg.InputShape)
	fmt.Printf("classes:\t %v\n", cfg.Classes)
	for d := 0; d < unet.Depth; d++ {
		fmt.Printf("decoder%d:\t in %v\t fusion %v\n", d, cfg.FusedChannels(d), net.Plan()[d])
	}
	fmt.Printf("params:\t %v\n", checkpoint.NumParams(vs))

	return nil
}

// runCheckModel runs a random batch through the network in eval and train
// mode, takes one optimizer step on it and saves the weights.
func runCheckModel(logger *slog.Logger) error {
	vs, net, err := newModel(logger)
	if err != nil {
		return err
	}

	cfg := net.Config()
	shape := cfg.InputShape[:]
	image := ts.MustRand(shape, gotch.Float, Device)
	defer image.MustDrop()
	mask := randomMask(cfg)
	defer mask.MustDrop()

	ts.NoGrad(func() {
		var logit *ts.Tensor
		logit, err = net.Forward(image, false)
		if err != nil {
			return
		}
		fmt.Printf("eval logits:\t %v\n", logit.MustSize())
		logit.MustDrop()
	})
	if err != nil {
		return err
	}

	from, missing, err := resume(vs, CkptDir, LoadMode)
	if err != nil {
		return err
	}
	if from != "" {
		logger.Info("resumed", "checkpoint", from, "mode", LoadMode, "missing", len(missing))
	}

	startRAM, memOK := usedRAM()

	opt, err := nn.DefaultAdamConfig().Build(vs, LR)
	if err != nil {
		return err
	}

	logit, err := net.Forward(image, true)
	if err != nil {
		return err
	}
	fmt.Printf("train logits:\t %v\n", logit.MustSize())

	loss := metric.CrossEntropyLoss(logit, mask)
	opt.BackwardStep(loss)
	fmt.Printf("loss:\t %.4f\t accuracy: %.4f\n", loss.Float64Values()[0], metric.Accuracy(logit, mask))

	loss.MustDrop()
	logit.MustDrop()

	if ram, ok := usedRAM(); ok && memOK && Device == gotch.CPU {
		fmt.Printf("train step used: [%8.2f MiB]\n", ram-startRAM)
	}

	path := CkptDir
	if filepath.Ext(path) != checkpoint.Ext {
		path = checkpoint.Name(CkptDir, ModelType, time.Now())
	}
	if err := checkpoint.Save(vs, path); err != nil {
		return err
	}
	logger.Info("checkpoint saved", "path", path)

	return nil
}

// resume loads the checkpoint found by checkpointPath(dir) into vs. load is
// parsed with checkpoint.ParseMode; empty keeps the initial weights.
func resume(vs *nn.VarStore, dir, load string) (string, []string, error) {
	if load == "" {
		return "", nil, nil
	}
	mode, err := checkpoint.ParseMode(load)
	if err != nil {
		return "", nil, err
	}

	path, err := checkpointPath(dir)
	if err != nil {
		return "", nil, err
	}
	missing, err := checkpoint.Load(vs, path, mode)
	if err != nil {
		return "", nil, err
	}

	return path, missing, nil
}

// randomMask draws uniform class ids shaped [B H W].
func randomMask(cfg unet.Config) *ts.Tensor {
	n := cfg.Batch() * cfg.Height() * cfg.Width()
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = rand.Int63n(cfg.Classes)
	}

	return ts.MustOfSlice(ids).MustView([]int64{cfg.Batch(), cfg.Height(), cfg.Width()}, true).MustTo(Device, true)
}

// printVars print variables sorted by name
func printVars(vs *nn.VarStore) {
	vars := vs.Variables()
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		x := vars[n]
		fmt.Printf("%v \t\t %v\n", n, x.MustSize())
	}
}
