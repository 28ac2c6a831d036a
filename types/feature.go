package types

import "fmt"

// Modality identifies the extractor that produced a FeatureVector.
type Modality string

const (
	// ModalityMoment is the 7-element Hu invariant vector of an image.
	ModalityMoment Modality = "moment"
	// ModalityCepstral is the concatenated two-window MFCC vector of a recording.
	ModalityCepstral Modality = "cepstral"
)

// MomentDimension is the length of every moment vector.
const MomentDimension = 7

// FeatureVector is an immutable, fixed-length model input.
type FeatureVector struct {
	values   []float32
	modality Modality
}

// NewFeatureVector copies values into a new vector.
func NewFeatureVector(modality Modality, values []float32) FeatureVector {
	v := make([]float32, len(values))
	copy(v, values)
	return FeatureVector{values: v, modality: modality}
}

// Values returns a copy of the vector elements.
func (f FeatureVector) Values() []float32 {
	v := make([]float32, len(f.values))
	copy(v, f.values)
	return v
}

// At returns element i.
func (f FeatureVector) At(i int) float32 { return f.values[i] }

// Dimension returns the number of elements.
func (f FeatureVector) Dimension() int { return len(f.values) }

// Modality returns the producing extractor kind.
func (f FeatureVector) Modality() Modality { return f.modality }

// String formats the vector for debug output.
func (f FeatureVector) String() string {
	return fmt.Sprintf("%s%v", f.modality, f.values)
}
