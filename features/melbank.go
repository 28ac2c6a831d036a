package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// HzToMel converts a frequency to the natural-log mel scale.
func HzToMel(f float64) float64 {
	return 1127 * math.Log(1+f/700)
}

// MelFilterBank returns triangular filters as a numFilters x (fftSize/2+1)
// matrix. Filter edges are numFilters+2 points evenly spaced in mel between
// fmin and fmax; spectrum bins are evenly spaced in Hz over [0, fs/2].
func MelFilterBank(fmin, fmax float64, numFilters, fs, fftSize int) *mat.Dense {
	bins := fftSize/2 + 1
	mels := make([]float64, numFilters+2)
	floats.Span(mels, HzToMel(fmin), HzToMel(fmax))

	binMels := make([]float64, bins)
	floats.Span(binMels, 0, float64(fs)/2)
	for i, f := range binMels {
		binMels[i] = HzToMel(f)
	}

	bank := mat.NewDense(numFilters, bins, nil)
	for n := range numFilters {
		lo, mid, hi := mels[n], mels[n+1], mels[n+2]
		for k, m := range binMels {
			up := (m - lo) / (mid - lo)
			down := (hi - m) / (hi - mid)
			bank.Set(n, k, math.Max(0, math.Min(up, down)))
		}
	}
	return bank
}

// DCTMatrix returns the numOutputs x numFilters DCT-II basis scaled by
// sqrt(2/numFilters).
func DCTMatrix(numOutputs, numFilters int) *mat.Dense {
	scale := math.Sqrt(2 / float64(numFilters))
	d := mat.NewDense(numOutputs, numFilters, nil)
	for i := range numOutputs {
		for j := range numFilters {
			s := (float64(j+1) - 0.5) / float64(numFilters)
			d.Set(i, j, math.Cos(float64(i)*math.Pi*s)*scale)
		}
	}
	return d
}
