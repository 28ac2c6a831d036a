// Package features computes fixed-length model inputs from raw samples.
//
// Two extractors are provided: seven Hu moment invariants for images and a
// two-window mel-frequency cepstral vector for audio. Both are pure: the
// output depends only on the input buffer and the Config fixed at construction.
package features

import (
	"errors"
	"fmt"
)

// Config holds every extractor parameter. One Config is built per process
// and shared by all extractors so training-time and test-time features agree.
type Config struct {
	FFTSize       int
	SampleRate    int
	NumMelFilters int
	NumDCTOutputs int
	FreqMin       float64
	// BinarizeMoments counts every nonzero pixel as 1 when computing moments.
	BinarizeMoments bool
}

// DefaultConfig returns the parameters the deployed models were trained with.
func DefaultConfig() Config {
	return Config{
		FFTSize:         1024,
		SampleRate:      8000,
		NumMelFilters:   20,
		NumDCTOutputs:   13,
		FreqMin:         20,
		BinarizeMoments: true,
	}
}

// CepstralDimension is the length of vectors produced with this config.
func (c Config) CepstralDimension() int {
	return 2 * c.NumDCTOutputs
}

// FreqMax is the upper edge of the mel filter bank.
func (c Config) FreqMax() float64 {
	return float64(c.SampleRate) / 2
}

// Validate checks the config for internal consistency.
func (c Config) Validate() error {
	var errs []error
	if c.FFTSize < 4 || c.FFTSize&(c.FFTSize-1) != 0 {
		errs = append(errs, fmt.Errorf("fft_size must be a power of two >= 4, got %d", c.FFTSize))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be > 0, got %d", c.SampleRate))
	}
	if c.NumMelFilters <= 0 {
		errs = append(errs, fmt.Errorf("mel_filters must be > 0, got %d", c.NumMelFilters))
	}
	if c.NumDCTOutputs <= 0 || c.NumDCTOutputs > c.NumMelFilters {
		errs = append(errs, fmt.Errorf("dct_outputs must be in 1..mel_filters, got %d", c.NumDCTOutputs))
	}
	if c.FreqMin < 0 || (c.SampleRate > 0 && c.FreqMin >= c.FreqMax()) {
		errs = append(errs, fmt.Errorf("freq_min must be in [0, sample_rate/2), got %g", c.FreqMin))
	}
	return errors.Join(errs...)
}
