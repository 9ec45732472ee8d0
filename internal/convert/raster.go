// Package convert post-processes captured poster rasters: alpha flattening,
// high-quality downscaling and encoding.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// White is the page color captures are flattened onto.
var White = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Decode reads a PNG or JPEG capture into an NRGBA image.
func Decode(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("convert: decode raster: %w", err)
	}
	return imaging.Clone(img), nil
}

// Flatten composites img over an opaque background so transparent regions
// export as page color.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// Downscale resizes img to exactly w x h with a Lanczos filter.
func Downscale(img image.Image, w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("convert: invalid target size %dx%d", w, h)
	}
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return imaging.Clone(img), nil
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("convert: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes img as JPEG at quality 1..100.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("convert: jpeg quality %d outside 1..100", quality)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("convert: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Uniform reports whether every pixel of img has the same color, which is
// what a capture looks like when the page never painted.
func Uniform(img *image.NRGBA) bool {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return true
	}
	// Walk Pix by stride instead of calling At per pixel.
	first := img.Pix[0:4]
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			if row[i] != first[0] || row[i+1] != first[1] || row[i+2] != first[2] || row[i+3] != first[3] {
				return false
			}
		}
	}
	return true
}
