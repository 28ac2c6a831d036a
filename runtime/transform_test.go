package runtime

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/benchlink/link"
	"github.com/pithecene-io/benchlink/lode"
	"github.com/pithecene-io/benchlink/types"
)

// halfDark is 128x128 with a dark left half and a bright right half.
func halfDark() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, types.ImageSide, types.ImageSide))
	for y := range types.ImageSide {
		for x := range types.ImageSide {
			v := uint8(30)
			if x >= types.ImageSide/2 {
				v = 220
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func newLoopbackRunner(dev *link.Device, files FileSink) *TransformRunner {
	return &TransformRunner{
		Transport: link.NewTransferer(link.NewLoopbackOpener(dev), link.Config{Timeout: 100 * time.Millisecond}),
		Files:     files,
		Nearest:   true,
	}
}

func TestTransformRunner_Run(t *testing.T) {
	dev := link.NewDevice()
	files := lode.NewStubFileWriter()
	r := newLoopbackRunner(dev, files)

	outs, err := r.Run(context.Background(), halfDark(), []types.Mode{types.ModeGrayOtsu, types.ModeColorOtsu})
	require.NoError(t, err)
	require.Len(t, outs, 2)

	gray, ok := outs[0].Image.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(0), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), gray.GrayAt(types.ImageSide-1, 0).Y)

	_, ok = outs[1].Image.(*image.RGBA)
	assert.True(t, ok)

	require.Len(t, files.Files, 2)
	assert.Equal(t, "otsu.png", files.Files[0].Filename)
	assert.Equal(t, "otsu-rgb.png", files.Files[1].Filename)
	assert.Equal(t, "image/png", files.Files[0].ContentType)
	_, err = png.Decode(bytes.NewReader(files.Files[0].Data))
	assert.NoError(t, err)

	assert.Equal(t, []types.Mode{types.ModeGrayOtsu, types.ModeColorOtsu}, dev.Stats().Handled)
}

func TestTransformRunner_Chain(t *testing.T) {
	files := lode.NewStubFileWriter()
	r := newLoopbackRunner(link.NewDevice(), files)

	outs, err := r.Chain(context.Background(), halfDark())
	require.NoError(t, err)
	require.Len(t, outs, 3)

	assert.Equal(t, "otsu.png", outs[0].Filename())
	assert.Equal(t, "dilate-of-otsu.png", outs[1].Filename())
	assert.Equal(t, "erode-of-otsu.png", outs[2].Filename())

	dilated := outs[1].Image.(*image.Gray)
	eroded := outs[2].Image.(*image.Gray)
	edge := types.ImageSide/2 - 1
	assert.Equal(t, uint8(255), dilated.GrayAt(edge, 10).Y, "dilation grows the bright half")
	assert.Equal(t, uint8(0), eroded.GrayAt(edge+1, 10).Y, "erosion shrinks the bright half")
	assert.Len(t, files.Files, 3)
}

func TestTransformRunner_FailedModeDoesNotStopOthers(t *testing.T) {
	dev := link.NewDevice()
	dev.SetFaults(link.Faults{ResponseLimit: 100})
	r := newLoopbackRunner(dev, nil)

	outs, err := r.Run(context.Background(), halfDark(), []types.Mode{types.ModeGrayOtsu, types.ModeErode})
	require.Error(t, err)
	require.Len(t, outs, 2)
	for _, out := range outs {
		assert.Error(t, out.Err)
		assert.True(t, link.IsShortRead(out.Err))
	}
	assert.Len(t, dev.Stats().Handled, 2)
}

func TestTransformOutput_Filename(t *testing.T) {
	assert.Equal(t, "erode.png", TransformOutput{Mode: types.ModeErode, Input: "source"}.Filename())
	assert.Equal(t, "mode-9.png", TransformOutput{Mode: types.Mode(9), Input: "source"}.Filename())
}
