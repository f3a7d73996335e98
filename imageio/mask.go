package imageio

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ClassNames are the CARLA semantic tags, indexed by class id.
var ClassNames = []string{
	"Unlabeled", "Building", "Fence", "Other", "Pedestrian", "Pole",
	"RoadLine", "Road", "SideWalk", "Vegetation", "Vehicles", "Wall",
	"TrafficSign", "Sky", "Ground", "Bridge", "RailTrack", "GuardRail",
	"TrafficLight", "Static", "Dynamic", "Water", "Terrain",
}

// Palette is the CARLA (CityScapes based) colour of every class.
var Palette = []color.NRGBA{
	{0, 0, 0, 255},
	{70, 70, 70, 255},
	{100, 40, 40, 255},
	{55, 90, 80, 255},
	{220, 20, 60, 255},
	{153, 153, 153, 255},
	{157, 234, 50, 255},
	{128, 64, 128, 255},
	{244, 35, 232, 255},
	{107, 142, 35, 255},
	{0, 0, 142, 255},
	{102, 102, 156, 255},
	{220, 220, 0, 255},
	{70, 130, 180, 255},
	{81, 0, 81, 255},
	{150, 100, 100, 255},
	{230, 150, 140, 255},
	{180, 165, 180, 255},
	{250, 170, 30, 255},
	{110, 190, 160, 255},
	{170, 120, 50, 255},
	{45, 60, 150, 255},
	{145, 170, 100, 255},
}

// Colorize paints h x w class ids with Palette.
func Colorize(ids []int64, h, w int) (*image.NRGBA, error) {
	if len(ids) != h*w {
		return nil, fmt.Errorf("got %d class ids for a %dx%d mask", len(ids), w, h)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, id := range ids {
		if id < 0 || int(id) >= len(Palette) {
			return nil, fmt.Errorf("class id %d has no palette colour", id)
		}
		img.SetNRGBA(i%w, i/w, Palette[id])
	}

	return img, nil
}

// SaveMask scales mask to w x h with nearest neighbour sampling and saves
// it. The format follows the file extension.
func SaveMask(path string, mask image.Image, w, h int) error {
	out := mask
	if b := mask.Bounds(); b.Dx() != w || b.Dy() != h {
		out = resize.Resize(uint(w), uint(h), mask, resize.NearestNeighbor)
	}

	return imaging.Save(out, path)
}

// Overlay draws mask over img with the given opacity (0-255). The mask is
// scaled to img's size first.
func Overlay(img, mask image.Image, alpha uint8) *image.RGBA {
	b := img.Bounds()
	if mb := mask.Bounds(); mb.Dx() != b.Dx() || mb.Dy() != b.Dy() {
		mask = resize.Resize(uint(b.Dx()), uint(b.Dy()), mask, resize.NearestNeighbor)
	}

	rec := image.Rect(0, 0, b.Dx(), b.Dy())
	dst := image.NewRGBA(rec)
	draw.Draw(dst, rec, img, b.Min, draw.Src)

	opacity := image.NewUniform(color.Alpha{alpha})
	draw.DrawMask(dst, rec, mask, mask.Bounds().Min, opacity, image.Point{}, draw.Over)

	return dst
}
