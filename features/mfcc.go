package features

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/pithecene-io/benchlink/types"
)

// logFloor keeps the log of silent mel bands finite.
const logFloor = 1e-6

// MFCC computes cepstral coefficients for one FFTSize-sample window.
// Safe for concurrent use.
type MFCC struct {
	size    int
	window  []float64
	filters *mat.Dense
	dct     *mat.Dense

	mu  sync.Mutex
	fft *fourier.FFT
}

// NewMFCC precomputes the window, filter bank and DCT basis for cfg.
func NewMFCC(cfg Config) (*MFCC, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mfcc config: %w", err)
	}
	return &MFCC{
		size:    cfg.FFTSize,
		window:  PeriodicHamming(cfg.FFTSize),
		filters: MelFilterBank(cfg.FreqMin, cfg.FreqMax(), cfg.NumMelFilters, cfg.SampleRate, cfg.FFTSize),
		dct:     DCTMatrix(cfg.NumDCTOutputs, cfg.NumMelFilters),
		fft:     fourier.NewFFT(cfg.FFTSize),
	}, nil
}

// PeriodicHamming returns an n-point Hamming window for spectral analysis:
// the first n points of an (n+1)-point symmetric window.
func PeriodicHamming(n int) []float64 {
	w := make([]float64, n+1)
	for i := range w {
		w[i] = 1
	}
	return window.Hamming(w)[:n]
}

// Compute returns the coefficients for frame, which must hold exactly
// FFTSize samples. frame is not modified.
func (m *MFCC) Compute(frame []float64) ([]float64, error) {
	if len(frame) != m.size {
		return nil, fmt.Errorf("frame has %d samples, want %d", len(frame), m.size)
	}
	buf := make([]float64, m.size)
	copy(buf, frame)
	PeakNormalize(buf)
	floats.Mul(buf, m.window)

	m.mu.Lock()
	coeffs := m.fft.Coefficients(nil, buf)
	m.mu.Unlock()

	mag := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag[i] = cmplx.Abs(c)
	}

	nFilters, _ := m.filters.Dims()
	mel := mat.NewVecDense(nFilters, nil)
	mel.MulVec(m.filters, mat.NewVecDense(len(mag), mag))
	for i := range nFilters {
		mel.SetVec(i, math.Log(mel.AtVec(i)+logFloor))
	}

	nOut, _ := m.dct.Dims()
	out := mat.NewVecDense(nOut, nil)
	out.MulVec(m.dct, mel)
	return append([]float64(nil), out.RawVector().Data...), nil
}

// PeakNormalize scales x in place so its largest magnitude is 1.
// An all-zero x is left unchanged.
func PeakNormalize(x []float64) {
	if len(x) == 0 {
		return
	}
	if peak := floats.Norm(x, math.Inf(1)); peak > 0 {
		floats.Scale(1/peak, x)
	}
}

// FixLength returns a copy of x truncated or zero-padded at the end to n samples.
func FixLength(x []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, x)
	return out
}

// CepstralExtractor produces the two-window cepstral vector for a recording.
type CepstralExtractor struct {
	cfg  Config
	mfcc *MFCC
}

// NewCepstralExtractor creates an extractor for cfg.
func NewCepstralExtractor(cfg Config) (*CepstralExtractor, error) {
	m, err := NewMFCC(cfg)
	if err != nil {
		return nil, err
	}
	return &CepstralExtractor{cfg: cfg, mfcc: m}, nil
}

// Dimension returns the output vector length.
func (e *CepstralExtractor) Dimension() int {
	return e.cfg.CepstralDimension()
}

// Extract fixes the recording to two windows, peak-normalizes it, and
// concatenates the coefficients of the first window and then the second.
func (e *CepstralExtractor) Extract(samples []float64) (types.FeatureVector, error) {
	if len(samples) == 0 {
		return types.FeatureVector{}, extractionErrorf("empty recording")
	}
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return types.FeatureVector{}, extractionErrorf("non-finite sample at index %d", i)
		}
	}

	n := e.cfg.FFTSize
	x := FixLength(samples, 2*n)
	PeakNormalize(x)

	values := make([]float32, 0, e.Dimension())
	for _, frame := range [][]float64{x[:n], x[n:]} {
		c, err := e.mfcc.Compute(frame)
		if err != nil {
			return types.FeatureVector{}, &ExtractionError{Reason: "mfcc", Err: err}
		}
		for _, v := range c {
			values = append(values, float32(v))
		}
	}
	return types.NewFeatureVector(types.ModalityCepstral, values), nil
}
