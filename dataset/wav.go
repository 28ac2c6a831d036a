package dataset

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/pithecene-io/benchlink/iox"
)

// ErrInvalidWAV is returned for files that are not PCM WAV.
var ErrInvalidWAV = errors.New("not a valid PCM wav file")

// Recording is a decoded mono signal.
type Recording struct {
	// Samples holds the first channel as raw integer sample values.
	Samples    []float64
	SampleRate int
}

// ReadWAV decodes a PCM WAV file. Multi-channel files keep channel 0.
func ReadWAV(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer iox.DiscardClose(f)

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	samples := make([]float64, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, float64(buf.Data[i]))
	}
	return &Recording{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}
