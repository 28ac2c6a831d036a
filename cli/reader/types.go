// Package reader is the read side of the benchlink CLI.
//
// Every read-only command goes through a Reader so commands never touch the
// storage layout directly.
package reader

import "time"

// ListRunsOptions filters ListRuns.
type ListRunsOptions struct {
	Suite string
	Limit int
}

// ListRunItem is one row of `benchlink list runs`.
type ListRunItem struct {
	RunID     string    `json:"run_id"`
	Suite     string    `json:"suite"`
	Model     string    `json:"model"`
	Scored    int       `json:"scored"`
	Correct   int       `json:"correct"`
	Accuracy  *float64  `json:"accuracy"`
	StartedAt time.Time `json:"started_at"`
}

// SampleRow is one stored sample outcome.
type SampleRow struct {
	Seq       int    `json:"seq"`
	SampleID  string `json:"sample_id"`
	Label     int    `json:"label"`
	Predicted *int   `json:"predicted"`
	Correct   bool   `json:"correct"`
	Failure   string `json:"failure,omitempty"`
	Message   string `json:"message,omitempty"`
}

// InspectRunResponse is the payload of `benchlink inspect run`.
type InspectRunResponse struct {
	RunID      string           `json:"run_id"`
	Suite      string           `json:"suite"`
	Day        string           `json:"day"`
	Attempt    int              `json:"attempt"`
	Model      string           `json:"model"`
	Requested  int              `json:"requested"`
	Attempted  int              `json:"attempted"`
	Scored     int              `json:"scored"`
	Correct    int              `json:"correct"`
	Accuracy   *float64         `json:"accuracy"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Samples    []SampleRow      `json:"samples"`
	Metrics    *MetricsSnapshot `json:"metrics"`
}

// RunStats aggregates stored batch reports.
type RunStats struct {
	Suite          string   `json:"suite,omitempty"`
	Runs           int      `json:"runs"`
	ScoredRuns     int      `json:"scored_runs"`
	NothingScored  int      `json:"nothing_scored"`
	SamplesScored  int      `json:"samples_scored"`
	SamplesCorrect int      `json:"samples_correct"`
	Accuracy       *float64 `json:"accuracy"`
	BestAccuracy   *float64 `json:"best_accuracy"`
	WorstAccuracy  *float64 `json:"worst_accuracy"`
}

// MetricsSnapshot is a stored metrics record.
type MetricsSnapshot struct {
	Ts string `json:"ts"`

	SamplesAttempted   int64 `json:"samples_attempted"`
	SamplesScored      int64 `json:"samples_scored"`
	SamplesCorrect     int64 `json:"samples_correct"`
	ExtractionFailures int64 `json:"extraction_failures"`
	LabelFailures      int64 `json:"label_failures"`
	InvocationFailures int64 `json:"invocation_failures"`

	TransfersOK   int64 `json:"transfers_ok"`
	ChannelErrors int64 `json:"channel_errors"`
	ShortReads    int64 `json:"short_reads"`
	BytesSent     int64 `json:"bytes_sent"`
	BytesReceived int64 `json:"bytes_received"`

	StorageWriteSuccess int64 `json:"storage_write_success"`
	StorageWriteFailure int64 `json:"storage_write_failure"`
	ResultsReceived     int64 `json:"results_received"`
	ResultsPersisted    int64 `json:"results_persisted"`

	Suite          string `json:"suite"`
	Policy         string `json:"policy"`
	StorageBackend string `json:"storage_backend"`
	RunID          string `json:"run_id"`
}
