package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sugarme/gotch"

	"github.com/sugarme/tced/unet"
)

// flag variables
var (
	task      string
	ModelType string
	CkptDir   string
	InputPath string
	MaskPath  string
	OutputDir string
	LoadMode  string
	Cuda      bool
	Debug     bool
	Device    gotch.Device
)

// hyperparameters
var (
	Filters   int     // filters at depth 0
	Classes   int     // number of segmentation classes
	Height    int     // network input height
	Width     int     // network input width
	BatchSize int     // batch size of the `check` task
	Dropout   float64 // encoder dropout rate
	LR        float64 // learning rate
)

func init() {
	def := unet.DefaultConfig()

	flag.StringVar(&task, "task", "summary", "specify task to run: summary, check, predict or eval")
	flag.StringVar(&ModelType, "model", "tced", "specify model type used in checkpoint names")
	flag.StringVar(&CkptDir, "ckpt-dir", "./checkpoint", "specify checkpoint directory or a '.ot' file")
	flag.StringVar(&InputPath, "input", "./input/image.png", "specify input image file")
	flag.StringVar(&MaskPath, "mask", "./input/mask.png", "specify ground-truth mask file (eval)")
	flag.StringVar(&OutputDir, "output", "./output", "specify output directory")
	flag.StringVar(&LoadMode, "load", "", "specify how the check task resumes from the latest checkpoint: 'checkpoint', 'scratch' or empty for fresh weights")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.BoolVar(&Debug, "debug", false, "log stage shapes")
	flag.IntVar(&Filters, "filters", int(def.Filters), "specify filters at the first encoder stage")
	flag.IntVar(&Classes, "classes", int(def.Classes), "specify number of classes")
	flag.IntVar(&Height, "height", int(def.Height()), "specify input height (multiple of 16)")
	flag.IntVar(&Width, "width", int(def.Width()), "specify input width (multiple of 16)")
	flag.IntVar(&BatchSize, "batch", int(def.Batch()), "specify batch size")
	flag.Float64Var(&Dropout, "dropout", def.DropoutRate, "specify encoder dropout rate")
	flag.Float64Var(&LR, "lr", 0.001, "specify learning rate")
}

func main() {
	flag.Parse()

	CkptDir = absPath(CkptDir)
	OutputDir = absPath(OutputDir)

	Device = gotch.CPU
	if Cuda {
		Device = gotch.NewCuda().CudaIfAvailable()
	}

	level := slog.LevelInfo
	if Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var err error
	switch task {
	case "summary":
		err = runSummary(logger)
	case "check":
		err = runCheckModel(logger)
	case "predict":
		err = runPredict(logger)
	case "eval":
		err = runEval(logger)
	default:
		err = fmt.Errorf("unknown task %q: expected summary, check, predict or eval", task)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// modelConfig maps the flags onto a network configuration.
func modelConfig() unet.Config {
	cfg := unet.DefaultConfig()
	cfg.Filters = int64(Filters)
	cfg.Classes = int64(Classes)
	cfg.DropoutRate = Dropout
	cfg.InputShape = [4]int64{int64(BatchSize), int64(Height), int64(Width), 3}

	return cfg
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
