package lode

import (
	"time"

	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/types"
)

// RecordKind discriminator values; also the last partition key.
const (
	RecordKindSample = "sample_result"
	RecordKindBatch  = "batch_report"
	RecordKindMetric = "metrics"
)

// partition returns the fields every record carries for the Hive layout.
func partition(cfg Config, kind string) map[string]any {
	return map[string]any{
		"record_kind": kind,
		"suite":       cfg.Suite,
		"day":         cfg.Day,
		"run_id":      cfg.RunID,
		"attempt":     cfg.Attempt,
	}
}

// toSampleRecordMap converts a sample record for storage.
func toSampleRecordMap(rec *types.SampleRecord, cfg Config) map[string]any {
	m := partition(cfg, RecordKindSample)
	m["seq"] = rec.Seq
	m["sample_id"] = rec.SampleID
	m["source"] = rec.Source
	m["label"] = rec.Label
	m["scored"] = rec.Scored
	m["predicted"] = rec.Predicted
	m["correct"] = rec.Correct
	if rec.Failure != "" {
		m["failure"] = string(rec.Failure)
		m["message"] = rec.Message
	}
	if len(rec.Outputs) > 0 {
		outputs := make([]float64, len(rec.Outputs))
		for i, v := range rec.Outputs {
			outputs[i] = float64(v)
		}
		m["outputs"] = outputs
	}
	return m
}

// toBatchRecordMap converts a batch summary for storage.
// accuracy is omitted when nothing was scored.
func toBatchRecordMap(rec *types.BatchRecord, cfg Config) map[string]any {
	m := partition(cfg, RecordKindBatch)
	m["total_attempted"] = rec.Report.TotalAttempted
	m["total_scored"] = rec.Report.TotalScored
	m["correct_count"] = rec.Report.CorrectCount
	if rec.Report.Accuracy != nil {
		m["accuracy"] = *rec.Report.Accuracy
	}
	m["requested"] = rec.Requested
	if rec.Model != "" {
		m["model"] = rec.Model
	}
	m["started_at"] = rec.StartedAt.UTC().Format(time.RFC3339Nano)
	m["finished_at"] = rec.FinishedAt.UTC().Format(time.RFC3339Nano)
	return m
}

// toMetricsRecordMap converts a metrics snapshot for storage.
func toMetricsRecordMap(snap metrics.Snapshot, cfg Config, completedAt time.Time) map[string]any {
	m := partition(cfg, RecordKindMetric)
	m["ts"] = completedAt.UTC().Format(time.RFC3339Nano)
	m["policy"] = snap.Policy
	m["storage_backend"] = snap.StorageBackend

	m["samples_attempted"] = snap.SamplesAttempted
	m["samples_scored"] = snap.SamplesScored
	m["samples_correct"] = snap.SamplesCorrect
	m["extraction_failures"] = snap.ExtractionFailures
	m["label_failures"] = snap.LabelFailures
	m["invocation_failures"] = snap.InvocationFailures

	m["transfers_ok"] = snap.TransfersOK
	m["channel_errors"] = snap.ChannelErrors
	m["short_reads"] = snap.ShortReads
	m["bytes_sent"] = snap.BytesSent
	m["bytes_received"] = snap.BytesReceived

	m["storage_write_success"] = snap.StorageWriteSuccess
	m["storage_write_failure"] = snap.StorageWriteFailure
	m["results_received"] = snap.ResultsReceived
	m["results_persisted"] = snap.ResultsPersisted
	return m
}
