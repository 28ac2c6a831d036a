package reader

import (
	"context"
	"errors"

	lodelibrary "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/benchlink/lode"
	"github.com/pithecene-io/benchlink/types"
)

// ErrRunNotFound is returned by InspectRun for an unknown run ID.
var ErrRunNotFound = lode.ErrRunNotFound

// Reader abstracts read-only access to stored batches.
type Reader interface {
	ListRuns(ctx context.Context, opts ListRunsOptions) ([]ListRunItem, error)
	InspectRun(ctx context.Context, runID string) (*InspectRunResponse, error)
	StatsRuns(ctx context.Context, suite string) (*RunStats, error)
	StatsMetrics(ctx context.Context, runID, suite string) (*MetricsSnapshot, error)
}

// LodeReader reads batches from a Lode dataset written by lode.LodeClient.
type LodeReader struct {
	ds lodelibrary.Dataset
}

// NewLodeReader wraps an opened dataset.
func NewLodeReader(ds lodelibrary.Dataset) *LodeReader {
	return &LodeReader{ds: ds}
}

// ListRuns returns stored batches, newest first.
func (r *LodeReader) ListRuns(ctx context.Context, opts ListRunsOptions) ([]ListRunItem, error) {
	runs, err := lode.QueryRuns(ctx, r.ds, opts.Suite)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(runs) > opts.Limit {
		runs = runs[:opts.Limit]
	}
	items := make([]ListRunItem, 0, len(runs))
	for _, s := range runs {
		items = append(items, listItem(s))
	}
	return items, nil
}

// InspectRun returns one batch with its samples and metrics.
func (r *LodeReader) InspectRun(ctx context.Context, runID string) (*InspectRunResponse, error) {
	detail, err := lode.QueryRun(ctx, r.ds, runID)
	if err != nil {
		return nil, err
	}
	resp := inspectResponse(detail.RunSummary, detail.Samples)
	if detail.Metrics != nil {
		snap, err := ParseMetricsRecord(detail.Metrics)
		if err != nil {
			return nil, err
		}
		resp.Metrics = snap
	}
	return resp, nil
}

// StatsRuns aggregates every stored batch of suite ("" for all suites).
func (r *LodeReader) StatsRuns(ctx context.Context, suite string) (*RunStats, error) {
	runs, err := lode.QueryRuns(ctx, r.ds, suite)
	if err != nil {
		return nil, err
	}
	reports := make([]types.BatchReport, 0, len(runs))
	for _, s := range runs {
		reports = append(reports, s.BatchReport)
	}
	stats := Aggregate(reports)
	stats.Suite = suite
	return stats, nil
}

// StatsMetrics returns the newest metrics record matching runID and suite.
func (r *LodeReader) StatsMetrics(ctx context.Context, runID, suite string) (*MetricsSnapshot, error) {
	rec, err := lode.QueryLatestMetrics(ctx, r.ds, runID, suite)
	if err != nil {
		return nil, err
	}
	return ParseMetricsRecord(rec)
}

var _ Reader = (*LodeReader)(nil)

// Aggregate folds batch reports into run statistics. Overall accuracy is
// pooled over samples, not averaged over runs.
func Aggregate(reports []types.BatchReport) *RunStats {
	stats := &RunStats{Runs: len(reports)}
	for _, rep := range reports {
		stats.SamplesScored += rep.TotalScored
		stats.SamplesCorrect += rep.CorrectCount
		if !rep.HasAccuracy() {
			stats.NothingScored++
			continue
		}
		stats.ScoredRuns++
		acc := *rep.Accuracy
		if stats.BestAccuracy == nil || acc > *stats.BestAccuracy {
			stats.BestAccuracy = &acc
		}
		if stats.WorstAccuracy == nil || acc < *stats.WorstAccuracy {
			stats.WorstAccuracy = &acc
		}
	}
	if stats.SamplesScored > 0 {
		acc := float64(stats.SamplesCorrect) / float64(stats.SamplesScored)
		stats.Accuracy = &acc
	}
	return stats
}

// IsNotFound reports whether err means the requested run or metrics are absent.
func IsNotFound(err error) bool {
	return errors.Is(err, lode.ErrRunNotFound) || errors.Is(err, lode.ErrNoMetricsFound)
}

func listItem(s lode.RunSummary) ListRunItem {
	return ListRunItem{
		RunID:     s.RunID,
		Suite:     s.Suite,
		Model:     s.Model,
		Scored:    s.TotalScored,
		Correct:   s.CorrectCount,
		Accuracy:  s.Accuracy,
		StartedAt: s.StartedAt,
	}
}

func inspectResponse(s lode.RunSummary, samples []types.SampleRecord) *InspectRunResponse {
	resp := &InspectRunResponse{
		RunID:      s.RunID,
		Suite:      s.Suite,
		Day:        s.Day,
		Attempt:    s.Attempt,
		Model:      s.Model,
		Requested:  s.Requested,
		Attempted:  s.TotalAttempted,
		Scored:     s.TotalScored,
		Correct:    s.CorrectCount,
		Accuracy:   s.Accuracy,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Samples:    make([]SampleRow, 0, len(samples)),
	}
	for _, rec := range samples {
		row := SampleRow{
			Seq:      rec.Seq,
			SampleID: rec.SampleID,
			Label:    rec.Label,
			Correct:  rec.Correct,
			Failure:  string(rec.Failure),
			Message:  rec.Message,
		}
		if rec.Scored {
			p := rec.Predicted
			row.Predicted = &p
		}
		resp.Samples = append(resp.Samples, row)
	}
	return resp
}
