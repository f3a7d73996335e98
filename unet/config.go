package unet

import (
	"fmt"

	"github.com/sugarme/tced/encoder"
)

// Depth is the number of encoder and decoder stages.
const Depth = encoder.Depth

// Config describes a network. InputShape is (batch, height, width, channels).
type Config struct {
	Filters     int64
	Classes     int64
	InputShape  [4]int64
	DropoutRate float64
	KernelSize  int64
}

// DefaultConfig returns the CARLA setup: 32 base filters, 23 classes and
// batches of 32 RGB images of 96x128.
func DefaultConfig() Config {
	return Config{
		Filters:     32,
		Classes:     23,
		InputShape:  [4]int64{32, 96, 128, 3},
		DropoutRate: 0.3,
		KernelSize:  3,
	}
}

func (c Config) Batch() int64    { return c.InputShape[0] }
func (c Config) Height() int64   { return c.InputShape[1] }
func (c Config) Width() int64    { return c.InputShape[2] }
func (c Config) Channels() int64 { return c.InputShape[3] }

// FiltersAt returns the channel width at depth d (0..Depth).
func (c Config) FiltersAt(d int) int64 {
	return encoder.Filters(c.Filters, d)
}

// SkipChannels is the number of channels SkipFusion adds at every decoder
// stage: the sum of all encoder widths.
func (c Config) SkipChannels() int64 {
	var n int64
	for d := 0; d < Depth; d++ {
		n += c.FiltersAt(d)
	}
	return n
}

// FusedChannels is the channel count entering the convolutions of the
// decoder stage at depth d.
func (c Config) FusedChannels(d int) int64 {
	return c.FiltersAt(d) + c.SkipChannels()
}

// Validate checks every field and that height and width can be halved
// Depth times to whole numbers.
func (c Config) Validate() error {
	switch {
	case c.Filters <= 0:
		return &ConfigError{"filters", c.Filters, "must be positive"}
	case c.Classes <= 0:
		return &ConfigError{"classes", c.Classes, "must be positive"}
	case c.KernelSize <= 0 || c.KernelSize%2 == 0:
		return &ConfigError{"kernel size", c.KernelSize, "must be a positive odd number"}
	case c.DropoutRate < 0 || c.DropoutRate >= 1:
		return &ConfigError{"dropout rate", c.DropoutRate, "must be in [0, 1)"}
	}

	for _, v := range c.InputShape {
		if v <= 0 {
			return &ConfigError{"input shape", c.InputShape, "all dimensions must be positive"}
		}
	}

	divisor := int64(1) << Depth
	if c.Height()%divisor != 0 || c.Width()%divisor != 0 {
		reason := fmt.Sprintf("height and width must be divisible by %d to be halved %d times", divisor, Depth)
		return &ConfigError{"input shape", c.InputShape, reason}
	}

	return nil
}
