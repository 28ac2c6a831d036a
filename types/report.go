package types

// BatchReport summarizes one evaluation batch.
//
// Invariants: TotalAttempted >= TotalScored >= CorrectCount.
// Accuracy is nil when TotalScored is 0.
type BatchReport struct {
	TotalAttempted int      `json:"total_attempted"`
	TotalScored    int      `json:"total_scored"`
	CorrectCount   int      `json:"correct_count"`
	Accuracy       *float64 `json:"accuracy"`
}

// Summarize builds a report from the attempted count and the scored results.
func Summarize(attempted int, results []EvaluationResult) BatchReport {
	r := BatchReport{TotalAttempted: attempted, TotalScored: len(results)}
	for _, res := range results {
		if res.Correct {
			r.CorrectCount++
		}
	}
	if r.TotalScored > 0 {
		acc := float64(r.CorrectCount) / float64(r.TotalScored)
		r.Accuracy = &acc
	}
	return r
}

// HasAccuracy reports whether any sample was scored.
func (r BatchReport) HasAccuracy() bool { return r.Accuracy != nil }

// AccuracyOr returns the accuracy or def when nothing was scored.
func (r BatchReport) AccuracyOr(def float64) float64 {
	if r.Accuracy == nil {
		return def
	}
	return *r.Accuracy
}
