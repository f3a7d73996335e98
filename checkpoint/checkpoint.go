// Package checkpoint names, finds, saves and loads model weight files.
//
// Checkpoint files are named `<YYYYMMDD-HHMMSS>_<model type>.ot` so that the
// most recent one sorts last by its timestamp prefix.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sugarme/gotch/nn"
)

// Ext is the extension of weight files written by nn.VarStore.
const Ext = ".ot"

const stampLayout = "20060102-150405"

// Name returns the checkpoint path for modelType saved at t in dir.
func Name(dir, modelType string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%v_%v%v", t.Format(stampLayout), modelType, Ext))
}

// Latest returns the checkpoint in dir with the greatest timestamp prefix.
// The error wraps os.ErrNotExist when dir holds no checkpoint.
func Latest(dir string) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return "", err
	}

	var (
		latest string
		stamp  string
	)
	for _, f := range files {
		name := filepath.Base(f)
		if len(name) < len(stampLayout) {
			continue
		}
		if s := name[:len(stampLayout)]; s > stamp {
			stamp = s
			latest = f
		}
	}

	if latest == "" {
		return "", fmt.Errorf("no %v checkpoint in %q: %w", Ext, dir, os.ErrNotExist)
	}

	return latest, nil
}

// Mode selects how strictly weights are matched on load.
type Mode int

const (
	// ModeCheckpoint requires every variable of the store in the file.
	ModeCheckpoint Mode = iota
	// ModeScratch loads whatever matches and reports the missing names.
	ModeScratch
)

func (m Mode) String() string {
	switch m {
	case ModeCheckpoint:
		return "checkpoint"
	case ModeScratch:
		return "scratch"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "checkpoint" or "scratch".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "checkpoint":
		return ModeCheckpoint, nil
	case "scratch":
		return ModeScratch, nil
	default:
		return 0, fmt.Errorf("invalid load mode %q: expected 'checkpoint' or 'scratch'", s)
	}
}

// Save writes all variables of vs to path, creating its directory.
func Save(vs *nn.VarStore, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := vs.Save(path); err != nil {
		return fmt.Errorf("save checkpoint %q: %w", path, err)
	}

	return nil
}

// Load reads the weights at path into vs. In ModeScratch it returns the
// names of the variables not found in the file.
func Load(vs *nn.VarStore, path string, mode Mode) ([]string, error) {
	modelPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeCheckpoint:
		if err := vs.Load(modelPath); err != nil {
			return nil, fmt.Errorf("load checkpoint %q: %w", modelPath, err)
		}
		return nil, nil
	case ModeScratch:
		missing, err := vs.LoadPartial(modelPath)
		if err != nil {
			return nil, fmt.Errorf("load partial %q: %w", modelPath, err)
		}
		return missing, nil
	default:
		return nil, fmt.Errorf("load %q: unsupported mode %v", modelPath, mode)
	}
}

// NumParams counts the scalar parameters held by vs.
func NumParams(vs *nn.VarStore) int64 {
	var total int64
	for _, v := range vs.Variables() {
		x := v
		n := int64(1)
		for _, dim := range x.MustSize() {
			n *= dim
		}
		total += n
	}

	return total
}
