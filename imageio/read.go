// Package imageio converts between image files and the tensors the
// segmentation network consumes and produces.
//
// Network inputs are [1 H W 3] float32 tensors with values in [0, 1].
// Masks are [1 H W] int64 tensors of class ids; on disk a CARLA mask keeps
// the class id in its red channel.
package imageio

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
)

// Read reads image from file. Supported formats: png, jpeg and tiff.
func Read(filename string) (image.Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".png":
		return png.Decode(f)
	case ".jpg", ".jpeg":
		return jpeg.Decode(f)
	case ".tiff", ".tif":
		return tiff.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported image format %q: %v", ext, filename)
	}
}
