package runtime

import (
	"context"
	"fmt"

	"github.com/pithecene-io/benchlink/dataset"
	"github.com/pithecene-io/benchlink/features"
	"github.com/pithecene-io/benchlink/types"
)

// Extractor turns one sample into the feature vector the model consumes.
// Failures are *features.ExtractionError.
type Extractor interface {
	Extract(ctx context.Context, sample *types.EvaluationSample) (types.FeatureVector, error)
}

// MomentPipeline extracts Hu moments from image samples.
type MomentPipeline struct {
	ext *features.MomentExtractor
}

// NewMomentPipeline builds the image pipeline from the shared config.
func NewMomentPipeline(cfg features.Config) *MomentPipeline {
	return &MomentPipeline{ext: features.NewMomentExtractor(cfg)}
}

// Extract implements Extractor.
func (p *MomentPipeline) Extract(_ context.Context, sample *types.EvaluationSample) (types.FeatureVector, error) {
	if !sample.HasImage() {
		return types.FeatureVector{}, &features.ExtractionError{Reason: "sample has no image"}
	}
	return p.ext.Extract(sample.Image, sample.Rows, sample.Cols)
}

// CepstralPipeline extracts two-window MFCCs from recordings. Audio is read
// from AudioPath on demand so unselected recordings are never decoded.
type CepstralPipeline struct {
	ext        *features.CepstralExtractor
	sampleRate int
}

// NewCepstralPipeline builds the audio pipeline from the shared config.
func NewCepstralPipeline(cfg features.Config) (*CepstralPipeline, error) {
	ext, err := features.NewCepstralExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return &CepstralPipeline{ext: ext, sampleRate: cfg.SampleRate}, nil
}

// Extract implements Extractor.
func (p *CepstralPipeline) Extract(ctx context.Context, sample *types.EvaluationSample) (types.FeatureVector, error) {
	audio := sample.Audio
	if audio == nil {
		if sample.AudioPath == "" {
			return types.FeatureVector{}, &features.ExtractionError{Reason: "sample has no audio"}
		}
		if err := ctx.Err(); err != nil {
			return types.FeatureVector{}, err
		}
		rec, err := dataset.ReadWAV(sample.AudioPath)
		if err != nil {
			return types.FeatureVector{}, &features.ExtractionError{Reason: "read recording", Err: err}
		}
		if rec.SampleRate != p.sampleRate {
			return types.FeatureVector{}, &features.ExtractionError{
				Reason: fmt.Sprintf("sample rate %d Hz, want %d Hz", rec.SampleRate, p.sampleRate),
			}
		}
		audio = rec.Samples
	}
	return p.ext.Extract(audio)
}

var (
	_ Extractor = (*MomentPipeline)(nil)
	_ Extractor = (*CepstralPipeline)(nil)
)
