package unet

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/tced/base"
	"github.com/sugarme/tced/encoder"
)

// Network is a UNet whose decoder stages fuse the outputs of all encoder
// depths, not only the mirrored one (tightly connected encoder/decoder).
// Ref: https://arxiv.org/abs/1505.04597
type Network struct {
	cfg     Config
	plan    Plan
	encoder encoder.Encoder
	decoder *UNetDecoder
	segHead *nn.SequentialT
	logger  *slog.Logger
}

// Option configures a Network.
type Option func(*Network)

// WithLogger sets the logger used for stage shape tracing (Debug level).
func WithLogger(l *slog.Logger) Option {
	return func(n *Network) {
		n.logger = l
	}
}

// New builds a Network under p. It fails with a *ConfigError for an
// invalid cfg and a *ShapeError when the skip fusion plan cannot be
// reconciled for cfg's input size.
func New(p *nn.Path, cfg Config, opts ...Option) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}

	n := &Network{cfg: cfg, plan: plan}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	n.encoder = encoder.NewStackEncoder(p.Sub("encoder"), cfg.Channels(), cfg.Filters, cfg.KernelSize, cfg.DropoutRate)
	n.decoder = NewUNetDecoder(p.Sub("decoder"), cfg, n.logger)
	n.segHead = base.NewSegmentationHead(p.Sub("output"), cfg.Filters, cfg.Classes, cfg.KernelSize)

	n.logger.Info("network built",
		"filters", cfg.Filters,
		"classes", cfg.Classes,
		"input", fmt.Sprint(cfg.InputShape),
		"dropout", cfg.DropoutRate,
	)

	return n, nil
}

// Default creates a Network with DefaultConfig.
func Default(p *nn.Path, opts ...Option) (*Network, error) {
	return New(p, DefaultConfig(), opts...)
}

// Config returns the configuration the network was built with.
func (n *Network) Config() Config {
	return n.cfg
}

// Plan returns the skip fusion plan validated at construction.
func (n *Network) Plan() Plan {
	return n.plan
}

// Decoder returns the bottleneck and decoder stages.
func (n *Network) Decoder() *UNetDecoder {
	return n.decoder
}

// Forward runs x, shaped [B H W C], through the network and returns logits
// shaped [B H W classes]. train only switches encoder dropout on.
// x is not freed. Inputs smaller than 2^Depth are a *ConfigError; other
// sizes the decoder cannot fuse are a *ShapeError.
func (n *Network) Forward(x *ts.Tensor, train bool) (*ts.Tensor, error) {
	size := x.MustSize()
	if len(size) != 4 {
		return nil, &ConfigError{"input", size, "expected a (batch, height, width, channels) tensor"}
	}
	if size[3] != n.cfg.Channels() {
		return nil, &ConfigError{"input channels", size[3], fmt.Sprintf("network expects %d", n.cfg.Channels())}
	}
	if least := int64(1) << Depth; size[1] < least || size[2] < least {
		reason := fmt.Sprintf("height and width must be at least %d to be halved %d times", least, Depth)
		return nil, &ConfigError{"input size", size[1:3], reason}
	}

	nchw := x.MustPermute([]int64{0, 3, 1, 2}, false).MustContiguous(true)
	out, cache := n.encoder.ForwardAll(nchw, train)
	nchw.MustDrop()
	for d, layer := range cache.Layers() {
		n.logger.Debug("stage", "name", "encoder", "depth", d, "shape", layer.MustSize())
	}

	z, err := n.decoder.ForwardFeatures(out, cache, train)
	out.MustDrop()
	cache.Drop()
	if err != nil {
		return nil, fmt.Errorf("forward %v: %w", size, err)
	}

	logits := n.segHead.ForwardT(z, train)
	z.MustDrop()
	n.logger.Debug("stage", "name", "output", "depth", 0, "shape", logits.MustSize())

	return logits.MustPermute([]int64{0, 2, 3, 1}, true).MustContiguous(true), nil
}

// ForwardT implements ts.ModuleT for Network. It panics where Forward
// returns an error.
func (n *Network) ForwardT(x *ts.Tensor, train bool) *ts.Tensor {
	logits, err := n.Forward(x, train)
	if err != nil {
		panic(err)
	}

	return logits
}
