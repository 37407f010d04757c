package floorplan

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Preprocessing errors.
var (
	ErrEmptyImage   = errors.New("floorplan: empty image data")
	ErrInvalidImage = errors.New("floorplan: invalid image data")
)

// MaxAnalysisDimension is the largest edge length sent to a vision provider.
// Bigger uploads are downscaled first: providers cap payload sizes and bill
// by resolution, and plan line work survives a 2048px downscale fine.
const MaxAnalysisDimension = 2048

// DecodeImage decodes upload bytes in any supported raster format
// (PNG, JPEG, GIF, WebP).
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// ScaleToFit scales an image down so its largest edge is at most maxDim,
// preserving aspect ratio. Images already within bounds are returned
// unchanged. CatmullRom keeps thin plan lines legible after scaling.
func ScaleToFit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(max(width, height))
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// PrepareForAnalysis readies a raster upload for the vision provider:
// oversized images are downscaled to MaxAnalysisDimension and re-encoded as
// PNG. Uploads already within bounds pass through untouched, original bytes
// and MIME type intact.
func PrepareForAnalysis(upload ImageUpload) (ImageUpload, error) {
	img, err := DecodeImage(upload.Data)
	if err != nil {
		return upload, err
	}

	bounds := img.Bounds()
	if bounds.Dx() <= MaxAnalysisDimension && bounds.Dy() <= MaxAnalysisDimension {
		return upload, nil
	}

	scaled := ScaleToFit(img, MaxAnalysisDimension)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return upload, fmt.Errorf("floorplan: re-encode scaled image: %w", err)
	}

	return ImageUpload{
		Data:     buf.Bytes(),
		MimeType: "image/png",
		Filename: upload.Filename,
	}, nil
}
