package types

import "time"

// SampleRecord is the persisted form of one attempted sample.
// Scored samples carry Predicted and Correct; skipped samples carry Failure.
type SampleRecord struct {
	Seq       int         `json:"seq"`
	SampleID  string      `json:"sample_id"`
	Source    string      `json:"source"`
	Label     int         `json:"label"`
	Scored    bool        `json:"scored"`
	Predicted int         `json:"predicted"`
	Correct   bool        `json:"correct"`
	Failure   FailureKind `json:"failure,omitempty"`
	Message   string      `json:"message,omitempty"`
	Outputs   []float32   `json:"outputs,omitempty"`
}

// RecordFromResult builds the record of a scored sample.
func RecordFromResult(seq int, r EvaluationResult, outputs []float32) *SampleRecord {
	return &SampleRecord{
		Seq:       seq,
		SampleID:  r.SampleID,
		Source:    r.Source,
		Label:     r.Label,
		Scored:    true,
		Predicted: r.Predicted,
		Correct:   r.Correct,
		Outputs:   outputs,
	}
}

// RecordFromFailure builds the record of a sample that was skipped.
func RecordFromFailure(seq, label int, f SampleFailure) *SampleRecord {
	return &SampleRecord{
		Seq:       seq,
		SampleID:  f.SampleID,
		Source:    f.Source,
		Label:     label,
		Predicted: LabelUnknown,
		Failure:   f.Kind,
		Message:   f.Message,
	}
}

// BatchRecord is the persisted summary of one batch.
type BatchRecord struct {
	Report     BatchReport `json:"report"`
	Requested  int         `json:"requested"`
	Model      string      `json:"model,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}
