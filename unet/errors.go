package unet

import "fmt"

// Size is the spatial (height, width) of a feature map.
type Size struct {
	H, W int64
}

func (s Size) String() string {
	return fmt.Sprintf("%vx%v", s.H, s.W)
}

// ConfigError reports a configuration or input shape that the network
// cannot be built for or run on.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unet: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// ShapeError reports a skip fusion whose spatial sizes cannot be
// reconciled. Depth is the decoder depth and Layer the encoder cache index;
// both are -1 when unknown.
type ShapeError struct {
	Depth   int
	Layer   int
	Primary Size
	Skip    Size
	Got     Size // resized skip size when the postcondition failed
	Reason  string
}

func (e *ShapeError) Error() string {
	stage := "skip fusion"
	if e.Depth >= 0 {
		stage = fmt.Sprintf("decoder depth %d", e.Depth)
	}
	if e.Layer >= 0 {
		stage = fmt.Sprintf("%s, encoder layer %d", stage, e.Layer)
	}

	return fmt.Sprintf("unet: %s: cannot fuse %v into %v: %s", stage, e.Skip, e.Primary, e.Reason)
}
