package reader

import "errors"

// ParseMetricsRecord converts a stored metrics record to a MetricsSnapshot.
// Numbers arrive as float64 after a JSONL round trip and as int64 from
// records that never left memory; both are accepted.
func ParseMetricsRecord(record map[string]any) (*MetricsSnapshot, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	snap := &MetricsSnapshot{
		Ts: toString(record["ts"]),

		SamplesAttempted:   toInt64(record["samples_attempted"]),
		SamplesScored:      toInt64(record["samples_scored"]),
		SamplesCorrect:     toInt64(record["samples_correct"]),
		ExtractionFailures: toInt64(record["extraction_failures"]),
		LabelFailures:      toInt64(record["label_failures"]),
		InvocationFailures: toInt64(record["invocation_failures"]),

		TransfersOK:   toInt64(record["transfers_ok"]),
		ChannelErrors: toInt64(record["channel_errors"]),
		ShortReads:    toInt64(record["short_reads"]),
		BytesSent:     toInt64(record["bytes_sent"]),
		BytesReceived: toInt64(record["bytes_received"]),

		StorageWriteSuccess: toInt64(record["storage_write_success"]),
		StorageWriteFailure: toInt64(record["storage_write_failure"]),
		ResultsReceived:     toInt64(record["results_received"]),
		ResultsPersisted:    toInt64(record["results_persisted"]),

		Suite:          toString(record["suite"]),
		Policy:         toString(record["policy"]),
		StorageBackend: toString(record["storage_backend"]),
		RunID:          toString(record["run_id"]),
	}

	// The write path always sets these.
	if snap.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if snap.RunID == "" {
		return nil, errors.New("metrics record missing required field: run_id")
	}
	if snap.Policy == "" {
		return nil, errors.New("metrics record missing required field: policy")
	}
	return snap, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
