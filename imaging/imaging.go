// Package imaging converts between image files and device payloads.
//
// Payloads are 128x128 8-bit planes: one plane for single-channel modes and
// three channel-planar planes (R, G, B) for the color mode.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"io"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp" // register decoder

	"github.com/pithecene-io/benchlink/types"
)

const side = types.ImageSide

// Load decodes a png, jpeg, gif or bmp file.
func Load(path string) (image.Image, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	return img, nil
}

// Save writes img as png.
func Save(path string, img image.Image) error {
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

// Resize scales img to the device size. Nearest-neighbour keeps binary
// sources binary; bilinear is used otherwise.
func Resize(img image.Image, nearest bool) *image.RGBA {
	filter := transform.Linear
	if nearest {
		filter = transform.NearestNeighbor
	}
	return transform.Resize(img, side, side, filter)
}

// Prepare resizes img and lays it out as the payload for mode.
func Prepare(img image.Image, mode types.Mode, nearest bool) []byte {
	rgba := Resize(img, nearest)
	if mode.Channels() == 3 {
		return planarRGB(rgba)
	}
	return grayPlane(rgba)
}

// grayPlane converts with ITU-R 601 luma weights.
func grayPlane(img *image.RGBA) []byte {
	out := make([]byte, side*side)
	for i := range out {
		c := color.RGBA{R: img.Pix[i*4], G: img.Pix[i*4+1], B: img.Pix[i*4+2], A: 0xff}
		out[i] = color.GrayModel.Convert(c).(color.Gray).Y
	}
	return out
}

func planarRGB(img *image.RGBA) []byte {
	plane := side * side
	out := make([]byte, 3*plane)
	for i := range plane {
		out[i] = img.Pix[i*4]
		out[plane+i] = img.Pix[i*4+1]
		out[2*plane+i] = img.Pix[i*4+2]
	}
	return out
}

// Restore rebuilds an image from a device response for mode.
func Restore(data []byte, mode types.Mode) (image.Image, error) {
	if len(data) != mode.PayloadLen() {
		return nil, fmt.Errorf("restore %s: got %d bytes, want %d", mode, len(data), mode.PayloadLen())
	}
	rect := image.Rect(0, 0, side, side)
	if mode.Channels() == 3 {
		plane := side * side
		img := image.NewRGBA(rect)
		for i := range plane {
			img.Pix[i*4] = data[i]
			img.Pix[i*4+1] = data[plane+i]
			img.Pix[i*4+2] = data[2*plane+i]
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	}
	img := image.NewGray(rect)
	copy(img.Pix, data)
	return img, nil
}

// FromGray wraps a row-major grayscale buffer as an image.
func FromGray(pixels []byte, rows, cols int) (*image.Gray, error) {
	if len(pixels) != rows*cols {
		return nil, fmt.Errorf("gray buffer is %d bytes, want %d", len(pixels), rows*cols)
	}
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := range rows {
		for x := range cols {
			img.SetGray(x, y, color.Gray{Y: pixels[y*cols+x]})
		}
	}
	return img, nil
}

// FromMNIST upsamples a 28x28 digit to the device size, nearest-neighbour.
func FromMNIST(pixels []byte) (*image.RGBA, error) {
	const mnistSide = 28
	img, err := FromGray(pixels, mnistSide, mnistSide)
	if err != nil {
		return nil, err
	}
	return Resize(img, true), nil
}

// EncodePNG writes img to w as png.
func EncodePNG(w io.Writer, img image.Image) error {
	return imgio.PNGEncoder()(w, img)
}
