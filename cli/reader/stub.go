package reader

import (
	"context"
	"fmt"
	"sort"

	"github.com/pithecene-io/benchlink/lode"
	"github.com/pithecene-io/benchlink/types"
)

// StubReader serves fixed in-memory runs. Commands use it in tests.
type StubReader struct {
	Runs    []InspectRunResponse
	Metrics []MetricsSnapshot
	Err     error
}

// NewStubReader creates a stub reader over runs.
func NewStubReader(runs ...InspectRunResponse) *StubReader {
	return &StubReader{Runs: runs}
}

// ListRuns implements Reader.
func (r *StubReader) ListRuns(_ context.Context, opts ListRunsOptions) ([]ListRunItem, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	items := []ListRunItem{}
	for _, run := range r.matching(opts.Suite) {
		items = append(items, ListRunItem{
			RunID:     run.RunID,
			Suite:     run.Suite,
			Model:     run.Model,
			Scored:    run.Scored,
			Correct:   run.Correct,
			Accuracy:  run.Accuracy,
			StartedAt: run.StartedAt,
		})
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

// InspectRun implements Reader.
func (r *StubReader) InspectRun(_ context.Context, runID string) (*InspectRunResponse, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	for i := range r.Runs {
		if r.Runs[i].RunID == runID {
			run := r.Runs[i]
			return &run, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
}

// StatsRuns implements Reader.
func (r *StubReader) StatsRuns(_ context.Context, suite string) (*RunStats, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	var reports []types.BatchReport
	for _, run := range r.matching(suite) {
		reports = append(reports, types.BatchReport{
			TotalAttempted: run.Attempted,
			TotalScored:    run.Scored,
			CorrectCount:   run.Correct,
			Accuracy:       run.Accuracy,
		})
	}
	stats := Aggregate(reports)
	stats.Suite = suite
	return stats, nil
}

// StatsMetrics implements Reader.
func (r *StubReader) StatsMetrics(_ context.Context, runID, suite string) (*MetricsSnapshot, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	for i := len(r.Metrics) - 1; i >= 0; i-- {
		m := r.Metrics[i]
		if (runID == "" || m.RunID == runID) && (suite == "" || m.Suite == suite) {
			return &m, nil
		}
	}
	return nil, lode.ErrNoMetricsFound
}

// matching returns runs of suite, newest first.
func (r *StubReader) matching(suite string) []InspectRunResponse {
	var out []InspectRunResponse
	for _, run := range r.Runs {
		if suite == "" || run.Suite == suite {
			out = append(out, run)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

var _ Reader = (*StubReader)(nil)
