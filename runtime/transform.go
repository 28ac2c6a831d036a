package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/pithecene-io/benchlink/imaging"
	"github.com/pithecene-io/benchlink/log"
	"github.com/pithecene-io/benchlink/types"
)

// Transport performs one protocol exchange. *link.Transferer implements it.
type Transport interface {
	Transfer(ctx context.Context, req types.TransferRequest) (*types.TransferResponse, error)
}

// FileSink stores output images next to the batch records.
type FileSink interface {
	PutFile(ctx context.Context, filename, contentType string, data []byte) error
}

// TransformOutput is the device result for one mode.
type TransformOutput struct {
	Mode types.Mode
	// Input names the image the mode was applied to ("source" or a mode).
	Input string
	Image image.Image
	Err   error
}

// Filename is the name the output is stored under.
func (o TransformOutput) Filename() string {
	if o.Input == "source" {
		return o.Mode.String() + ".png"
	}
	return fmt.Sprintf("%s-of-%s.png", o.Mode, o.Input)
}

// TransformRunner sends images through the transfer protocol.
type TransformRunner struct {
	Transport Transport
	Logger    *log.Logger
	// Files, when set, receives every successful output as png.
	Files FileSink
	// Nearest resizes with nearest-neighbour, for binary sources.
	Nearest bool
}

// Run applies each mode to img independently. A failed mode does not stop
// the others; the joined error lists every failure.
func (r *TransformRunner) Run(ctx context.Context, img image.Image, modes []types.Mode) ([]TransformOutput, error) {
	outputs := make([]TransformOutput, 0, len(modes))
	var errs []error
	for _, m := range modes {
		out := r.apply(ctx, m, "source", imaging.Prepare(img, m, r.Nearest))
		outputs = append(outputs, out)
		if out.Err != nil {
			errs = append(errs, out.Err)
		}
	}
	return outputs, errors.Join(errs...)
}

// Chain binarizes img with gray Otsu, then dilates and erodes the binary
// result. Dilation and erosion both start from the Otsu output.
func (r *TransformRunner) Chain(ctx context.Context, img image.Image) ([]TransformOutput, error) {
	otsu := r.apply(ctx, types.ModeGrayOtsu, "source", imaging.Prepare(img, types.ModeGrayOtsu, r.Nearest))
	if otsu.Err != nil {
		return []TransformOutput{otsu}, otsu.Err
	}
	binary := otsu.Image.(*image.Gray).Pix

	outputs := []TransformOutput{otsu}
	var errs []error
	for _, m := range []types.Mode{types.ModeDilate, types.ModeErode} {
		out := r.apply(ctx, m, types.ModeGrayOtsu.String(), binary)
		outputs = append(outputs, out)
		if out.Err != nil {
			errs = append(errs, out.Err)
		}
	}
	return outputs, errors.Join(errs...)
}

func (r *TransformRunner) apply(ctx context.Context, mode types.Mode, input string, payload []byte) TransformOutput {
	out := TransformOutput{Mode: mode, Input: input}

	resp, err := r.Transport.Transfer(ctx, types.TransferRequest{Mode: mode, Payload: payload})
	if err != nil {
		out.Err = fmt.Errorf("%s: %w", mode, err)
		return out
	}
	out.Image, out.Err = imaging.Restore(resp.Bytes, mode)
	if out.Err == nil && r.Files != nil {
		r.store(ctx, out)
	}
	return out
}

// store is best effort; a failed upload is logged and the output kept.
func (r *TransformRunner) store(ctx context.Context, out TransformOutput) {
	var buf bytes.Buffer
	err := imaging.EncodePNG(&buf, out.Image)
	if err == nil {
		err = r.Files.PutFile(ctx, out.Filename(), "image/png", buf.Bytes())
	}
	if err != nil && r.Logger != nil {
		r.Logger.Warn("storing transform output failed", map[string]any{
			"mode":  out.Mode.String(),
			"file":  out.Filename(),
			"error": err.Error(),
		})
	}
}
