package types

// LabelUnknown marks a sample whose ground truth could not be determined.
const LabelUnknown = -1

// EvaluationSample is one labeled input drawn into a batch.
// Exactly one of the image fields or the audio fields is populated.
type EvaluationSample struct {
	// ID is stable across runs (e.g. "mnist-00042" or the recording file name).
	ID string
	// Source names the dataset or file the sample came from.
	Source string
	// Label is the ground-truth class, or LabelUnknown.
	Label int

	// Image is a row-major 8-bit grayscale buffer of Rows x Cols.
	Image []byte
	Rows  int
	Cols  int

	// Audio holds decoded samples; AudioPath is read lazily when Audio is nil.
	Audio     []float64
	AudioPath string
}

// HasImage reports whether the sample carries image data.
func (s *EvaluationSample) HasImage() bool { return len(s.Image) > 0 }

// EvaluationResult is the scored outcome of one sample.
type EvaluationResult struct {
	SampleID  string `json:"sample_id"`
	Source    string `json:"source"`
	Label     int    `json:"label"`
	Predicted int    `json:"predicted"`
	Correct   bool   `json:"correct"`
}

// FailureKind classifies why a sample or a batch did not complete.
type FailureKind string

const (
	FailureChannel       FailureKind = "channel_error"
	FailureShortRead     FailureKind = "short_read"
	FailureExtraction    FailureKind = "extraction_error"
	FailureLabelParse    FailureKind = "label_parse_error"
	FailureInvocation    FailureKind = "invocation_error"
	FailureModelNotFound FailureKind = "model_not_found"
	FailureConnect       FailureKind = "connect_error"
)

// SampleFailure records a sample that was attempted but not scored.
type SampleFailure struct {
	SampleID string      `json:"sample_id"`
	Source   string      `json:"source"`
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
}
