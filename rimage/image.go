// Package rimage holds the color and depth imagery handled by the triplet builder and the
// encoders used to persist it.
package rimage

import (
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// DefaultJPEGQuality is the quality used for color artifacts when none is configured.
const DefaultJPEGQuality = 95

// ConcatHorizontal places the images side by side, left to right, in the order given.
// All images must share the same height.
func ConcatHorizontal(imgs ...image.Image) (*image.NRGBA, error) {
	if len(imgs) == 0 {
		return nil, errors.New("no images to concatenate")
	}
	height := imgs[0].Bounds().Dy()
	width := 0
	for i, img := range imgs {
		if img == nil {
			return nil, errors.Errorf("image %d is nil", i)
		}
		if img.Bounds().Dy() != height {
			return nil, errors.Errorf("image %d has height %d, expected %d", i, img.Bounds().Dy(), height)
		}
		width += img.Bounds().Dx()
	}

	out := imaging.New(width, height, color.NRGBA{})
	x := 0
	for _, img := range imgs {
		out = imaging.Paste(out, img, image.Pt(x, 0))
		x += img.Bounds().Dx()
	}
	return out, nil
}

// SplitHorizontal cuts img into n equally wide pieces, left to right.
func SplitHorizontal(img image.Image, n int) ([]*image.NRGBA, error) {
	b := img.Bounds()
	if n <= 0 || b.Dx()%n != 0 {
		return nil, errors.Errorf("cannot split width %d into %d pieces", b.Dx(), n)
	}
	w := b.Dx() / n
	pieces := make([]*image.NRGBA, 0, n)
	for i := 0; i < n; i++ {
		r := image.Rect(b.Min.X+i*w, b.Min.Y, b.Min.X+(i+1)*w, b.Max.Y)
		pieces = append(pieces, imaging.Crop(img, r))
	}
	return pieces, nil
}

// EncodeImage encodes img to w in the format named by ext (".jpg", ".png", ...). JPEG output
// uses the given quality.
func EncodeImage(w io.Writer, img image.Image, ext string, jpegQuality int) error {
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return errors.Wrapf(err, "unsupported image extension %q", ext)
	}
	if jpegQuality <= 0 {
		jpegQuality = DefaultJPEGQuality
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(jpegQuality))
}

// WriteImageToFile encodes img to path. The format follows the file extension; JPEG output
// uses the given quality.
func WriteImageToFile(path string, img image.Image, jpegQuality int) error {
	if jpegQuality <= 0 {
		jpegQuality = DefaultJPEGQuality
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return errors.Wrapf(err, "cannot write image to %q", path)
	}
	return nil
}
