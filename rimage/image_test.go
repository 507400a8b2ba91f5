package rimage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func TestConcatHorizontal(t *testing.T) {
	out, err := ConcatHorizontal(solid(4, 3, red), solid(4, 3, green), solid(4, 3, blue))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds(), test.ShouldResemble, image.Rect(0, 0, 12, 3))
	test.That(t, out.NRGBAAt(0, 0), test.ShouldResemble, red)
	test.That(t, out.NRGBAAt(3, 2), test.ShouldResemble, red)
	test.That(t, out.NRGBAAt(4, 0), test.ShouldResemble, green)
	test.That(t, out.NRGBAAt(11, 2), test.ShouldResemble, blue)

	pieces, err := SplitHorizontal(out, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pieces), test.ShouldEqual, 3)
	test.That(t, pieces[1].NRGBAAt(0, 0), test.ShouldResemble, green)
	test.That(t, pieces[2].Bounds().Dx(), test.ShouldEqual, 4)
}

func TestConcatHorizontalErrors(t *testing.T) {
	_, err := ConcatHorizontal()
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ConcatHorizontal(solid(4, 3, red), solid(4, 2, green))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "height 2")

	_, err = SplitHorizontal(solid(5, 1, red), 3)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEncodeImage(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, EncodeImage(&buf, solid(2, 2, green), ".png", 0), test.ShouldBeNil)
	decoded, err := png.Decode(&buf)
	test.That(t, err, test.ShouldBeNil)
	r, g, b, _ := decoded.At(1, 1).RGBA()
	test.That(t, []uint32{r, g, b}, test.ShouldResemble, []uint32{0, 0xffff, 0})

	test.That(t, EncodeImage(&buf, solid(2, 2, green), ".xyz", 0), test.ShouldNotBeNil)
}

func TestWriteImageToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jpg")
	test.That(t, WriteImageToFile(path, solid(8, 8, red), 90), test.ShouldBeNil)

	img, err := imaging.Open(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 8)
}
