package features

import (
	"math"

	"github.com/pithecene-io/benchlink/types"
)

// Moments holds spatial, central and normalized central moments up to
// third order. x runs along columns and y along rows.
type Moments struct {
	M00, M10, M01, M20, M11, M02, M30, M21, M12, M03 float64
	Mu20, Mu11, Mu02, Mu30, Mu21, Mu12, Mu03       float64
	Nu20, Nu11, Nu02, Nu30, Nu21, Nu12, Nu03       float64
}

// ComputeMoments computes the moments of a row-major rows x cols image.
// With binary set every nonzero pixel weighs 1; otherwise the pixel value
// is the weight. An empty image yields all-zero moments.
func ComputeMoments(pixels []byte, rows, cols int, binary bool) Moments {
	weight := func(v byte) float64 {
		if binary {
			if v != 0 {
				return 1
			}
			return 0
		}
		return float64(v)
	}

	var m Moments
	for y := range rows {
		fy := float64(y)
		row := pixels[y*cols : (y+1)*cols]
		for x, v := range row {
			w := weight(v)
			if w == 0 {
				continue
			}
			fx := float64(x)
			m.M00 += w
			m.M10 += w * fx
			m.M01 += w * fy
			m.M20 += w * fx * fx
			m.M11 += w * fx * fy
			m.M02 += w * fy * fy
			m.M30 += w * fx * fx * fx
			m.M21 += w * fx * fx * fy
			m.M12 += w * fx * fy * fy
			m.M03 += w * fy * fy * fy
		}
	}
	if m.M00 == 0 {
		return m
	}

	cx, cy := m.M10/m.M00, m.M01/m.M00
	for y := range rows {
		dy := float64(y) - cy
		row := pixels[y*cols : (y+1)*cols]
		for x, v := range row {
			w := weight(v)
			if w == 0 {
				continue
			}
			dx := float64(x) - cx
			m.Mu20 += w * dx * dx
			m.Mu11 += w * dx * dy
			m.Mu02 += w * dy * dy
			m.Mu30 += w * dx * dx * dx
			m.Mu21 += w * dx * dx * dy
			m.Mu12 += w * dx * dy * dy
			m.Mu03 += w * dy * dy * dy
		}
	}

	// nu_pq = mu_pq / m00^(1 + (p+q)/2)
	s2 := 1 / (m.M00 * m.M00)
	s3 := s2 / math.Sqrt(m.M00)
	m.Nu20, m.Nu11, m.Nu02 = m.Mu20*s2, m.Mu11*s2, m.Mu02*s2
	m.Nu30, m.Nu21, m.Nu12, m.Nu03 = m.Mu30*s3, m.Mu21*s3, m.Mu12*s3, m.Mu03*s3
	return m
}

// HuMoments returns the seven Hu invariants in the standard order.
func (m Moments) HuMoments() [types.MomentDimension]float64 {
	n20, n11, n02 := m.Nu20, m.Nu11, m.Nu02
	n30, n21, n12, n03 := m.Nu30, m.Nu21, m.Nu12, m.Nu03

	t0 := n30 + n12
	t1 := n21 + n03
	q0 := t0 * t0
	q1 := t1 * t1
	d0 := n30 - 3*n12
	d1 := 3*n21 - n03

	var hu [types.MomentDimension]float64
	hu[0] = n20 + n02
	hu[1] = (n20-n02)*(n20-n02) + 4*n11*n11
	hu[2] = d0*d0 + d1*d1
	hu[3] = q0 + q1
	hu[4] = d0*t0*(q0-3*q1) + d1*t1*(3*q0-q1)
	hu[5] = (n20-n02)*(q0-q1) + 4*n11*t0*t1
	hu[6] = d1*t0*(q0-3*q1) - d0*t1*(3*q0-q1)
	return hu
}

// MomentExtractor turns an image into its Hu invariant vector.
type MomentExtractor struct {
	binary bool
}

// NewMomentExtractor creates an extractor honoring cfg.BinarizeMoments.
func NewMomentExtractor(cfg Config) *MomentExtractor {
	return &MomentExtractor{binary: cfg.BinarizeMoments}
}

// Extract computes the 7-element vector for a rows x cols image.
func (e *MomentExtractor) Extract(pixels []byte, rows, cols int) (types.FeatureVector, error) {
	if rows <= 0 || cols <= 0 {
		return types.FeatureVector{}, extractionErrorf("invalid image shape %dx%d", rows, cols)
	}
	if len(pixels) != rows*cols {
		return types.FeatureVector{}, extractionErrorf("image buffer is %d bytes, want %d", len(pixels), rows*cols)
	}
	m := ComputeMoments(pixels, rows, cols, e.binary)
	if m.M00 == 0 {
		return types.FeatureVector{}, extractionErrorf("image has no foreground pixels")
	}
	hu := m.HuMoments()
	values := make([]float32, len(hu))
	for i, h := range hu {
		values[i] = float32(h)
	}
	return types.NewFeatureVector(types.ModalityMoment, values), nil
}
