package texturecache

import (
	"image"
	"image/color"
)

// PlaceholderSize is the edge length of generated placeholder textures.
const PlaceholderSize = 64

// Placeholder returns a solid-color square image for permanently
// unreachable texture URLs. The cache itself never substitutes
// placeholders; callers opt in after a failed Load.
func Placeholder(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	for y := 0; y < PlaceholderSize; y++ {
		for x := 0; x < PlaceholderSize; x++ {
			img.SetRGBA(x, y, rgba)
		}
	}
	return img
}

// NeutralPlaceholder is the default mid-gray substitute texture.
func NeutralPlaceholder() image.Image {
	return Placeholder(color.RGBA{R: 128, G: 128, B: 128, A: 255})
}
