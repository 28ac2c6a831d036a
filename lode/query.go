package lode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/benchlink/types"
)

// ErrRunNotFound is returned when no batch report exists for a run.
var ErrRunNotFound = errors.New("run not found")

// ErrNoMetricsFound is returned when no metrics records exist in the dataset.
var ErrNoMetricsFound = errors.New("no metrics records found")

// RunSummary is a stored batch report.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Suite      string    `json:"suite"`
	Day        string    `json:"day"`
	Attempt    int       `json:"attempt"`
	Model      string    `json:"model,omitempty"`
	Requested  int       `json:"requested"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	types.BatchReport
}

// RunDetail is a stored batch with its sample records.
type RunDetail struct {
	RunSummary
	Samples []types.SampleRecord `json:"samples"`
	Metrics map[string]any       `json:"metrics,omitempty"`
}

// scan visits every record of the given kind, newest snapshot first.
// Snapshots are pre-filtered on their partition paths; record fields are
// authoritative.
func scan(ctx context.Context, ds lode.Dataset, kind string, filters map[string]string, visit func(map[string]any) bool) error {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return WrapReadError(err, "snapshots")
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotHasPartition(snap, "record_kind", kind) {
			continue
		}
		match := true
		for k, v := range filters {
			if !snapshotHasPartition(snap, k, v) {
				match = false
				break
			}
		}
		if !match {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != kind {
				continue
			}
			if !recordMatches(record, filters) {
				continue
			}
			if !visit(record) {
				return nil
			}
		}
	}
	return nil
}

func recordMatches(record map[string]any, filters map[string]string) bool {
	for k, v := range filters {
		if v != "" && toString(record[k]) != v {
			return false
		}
	}
	return true
}

// QueryRuns lists stored batch reports, newest first. An empty suite
// matches every suite.
func QueryRuns(ctx context.Context, ds lode.Dataset, suite string) ([]RunSummary, error) {
	seen := make(map[string]bool)
	var runs []RunSummary
	err := scan(ctx, ds, RecordKindBatch, map[string]string{"suite": suite}, func(r map[string]any) bool {
		s := toRunSummary(r)
		if !seen[s.RunID] {
			seen[s.RunID] = true
			runs = append(runs, s)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// QueryRun reads one batch report with its sample records in order.
func QueryRun(ctx context.Context, ds lode.Dataset, runID string) (*RunDetail, error) {
	filter := map[string]string{"run_id": runID}

	var detail *RunDetail
	err := scan(ctx, ds, RecordKindBatch, filter, func(r map[string]any) bool {
		detail = &RunDetail{RunSummary: toRunSummary(r)}
		return false
	})
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	seen := make(map[int]bool)
	err = scan(ctx, ds, RecordKindSample, filter, func(r map[string]any) bool {
		rec := toSampleRecord(r)
		if !seen[rec.Seq] {
			seen[rec.Seq] = true
			detail.Samples = append(detail.Samples, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(detail.Samples, func(i, j int) bool {
		return detail.Samples[i].Seq < detail.Samples[j].Seq
	})

	m, err := QueryLatestMetrics(ctx, ds, runID, "")
	switch {
	case err == nil:
		detail.Metrics = m
	case !errors.Is(err, ErrNoMetricsFound):
		return nil, err
	}
	return detail, nil
}

// QueryLatestMetrics returns the newest metrics record, filtered by run and
// suite when they are non-empty.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, runID, suite string) (map[string]any, error) {
	var found map[string]any
	err := scan(ctx, ds, RecordKindMetric, map[string]string{"run_id": runID, "suite": suite}, func(r map[string]any) bool {
		found = r
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoMetricsFound
	}
	return found, nil
}

func toRunSummary(r map[string]any) RunSummary {
	s := RunSummary{
		RunID:     toString(r["run_id"]),
		Suite:     toString(r["suite"]),
		Day:       toString(r["day"]),
		Attempt:   toInt(r["attempt"]),
		Model:     toString(r["model"]),
		Requested: toInt(r["requested"]),
		BatchReport: types.BatchReport{
			TotalAttempted: toInt(r["total_attempted"]),
			TotalScored:    toInt(r["total_scored"]),
			CorrectCount:   toInt(r["correct_count"]),
		},
	}
	if acc, ok := toFloat(r["accuracy"]); ok {
		s.Accuracy = &acc
	}
	s.StartedAt, _ = time.Parse(time.RFC3339Nano, toString(r["started_at"]))
	s.FinishedAt, _ = time.Parse(time.RFC3339Nano, toString(r["finished_at"]))
	return s
}

func toSampleRecord(r map[string]any) types.SampleRecord {
	rec := types.SampleRecord{
		Seq:       toInt(r["seq"]),
		SampleID:  toString(r["sample_id"]),
		Source:    toString(r["source"]),
		Label:     toInt(r["label"]),
		Predicted: toInt(r["predicted"]),
		Failure:   types.FailureKind(toString(r["failure"])),
		Message:   toString(r["message"]),
	}
	rec.Scored, _ = r["scored"].(bool)
	rec.Correct, _ = r["correct"].(bool)
	if outs, ok := r["outputs"].([]any); ok {
		rec.Outputs = make([]float32, 0, len(outs))
		for _, o := range outs {
			v, _ := toFloat(o)
			rec.Outputs = append(rec.Outputs, float32(v))
		}
	}
	return rec
}

// toString converts a value to string, returning "" for nil or non-strings.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toFloat accepts the numeric shapes produced by the JSONL codec and by
// records that never left memory.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt(v any) int {
	f, _ := toFloat(v)
	return int(f)
}
