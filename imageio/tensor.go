package imageio

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	ts "github.com/sugarme/gotch/tensor"
)

// Pixels resizes img to w x h (bilinear) and returns its RGB values scaled
// to [0, 1] in H W C order.
func Pixels(img image.Image, h, w int) []float32 {
	src := imaging.Resize(img, w, h, imaging.Linear)

	out := make([]float32, 0, h*w*3)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+3]
			out = append(out, float32(px[0])/255, float32(px[1])/255, float32(px[2])/255)
		}
	}

	return out
}

// ToTensor converts img into a [1 h w 3] float32 tensor.
func ToTensor(img image.Image, h, w int) *ts.Tensor {
	return ts.MustOfSlice(Pixels(img, h, w)).MustView([]int64{1, int64(h), int64(w), 3}, true)
}

// ClassIDs resizes a mask image to w x h with nearest neighbour sampling
// and returns the class id (red channel) of every pixel in row-major order.
// Ids must be below classes.
func ClassIDs(mask image.Image, h, w, classes int) ([]int64, error) {
	src := imaging.Resize(mask, w, h, imaging.NearestNeighbor)

	out := make([]int64, 0, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := int(src.Pix[y*src.Stride+x*4])
			if id >= classes {
				return nil, fmt.Errorf("mask pixel (%d, %d): class id %d out of range [0, %d)", x, y, id, classes)
			}
			out = append(out, int64(id))
		}
	}

	return out, nil
}

// MaskTensor converts a mask image into a [1 h w] int64 tensor.
func MaskTensor(mask image.Image, h, w, classes int) (*ts.Tensor, error) {
	ids, err := ClassIDs(mask, h, w, classes)
	if err != nil {
		return nil, err
	}

	return ts.MustOfSlice(ids).MustView([]int64{1, int64(h), int64(w)}, true), nil
}
