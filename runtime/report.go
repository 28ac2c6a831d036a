package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/benchlink/iox"
	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/types"
)

// BatchRunReport is the structured JSON report written by --report.
type BatchRunReport struct {
	RunID      string `json:"run_id"`
	Suite      string `json:"suite"`
	Attempt    int    `json:"attempt"`
	Model      string `json:"model,omitempty"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	Requested  int    `json:"requested"`
	Selected   int    `json:"selected"`

	Report   types.BatchReport     `json:"report"`
	Failures []types.SampleFailure `json:"failures,omitempty"`

	Policy  *ReportPolicy     `json:"policy"`
	Metrics *metrics.Snapshot `json:"metrics"`
}

// ReportPolicy holds policy stats in the report.
type ReportPolicy struct {
	Name             string           `json:"name"`
	SamplesReceived  int64            `json:"samples_received"`
	SamplesPersisted int64            `json:"samples_persisted"`
	FlushTriggers    map[string]int64 `json:"flush_triggers,omitempty"`
}

// BuildBatchRunReport composes a report from the batch outcome.
// result is nil when the batch failed during setup; runErr is the error the
// orchestrator returned, if any.
func BuildBatchRunReport(meta types.BatchMeta, result *BatchResult, runErr error, snap metrics.Snapshot, policyName string) *BatchRunReport {
	code := DetermineExitCode(result, runErr)
	outcome, message := OutcomeFor(code, result, runErr)

	report := &BatchRunReport{
		RunID:    meta.RunID,
		Suite:    meta.Suite,
		Attempt:  meta.Attempt,
		Outcome:  outcome,
		Message:  message,
		ExitCode: code,
		Policy:   &ReportPolicy{Name: policyName},
		Metrics:  &snap,
	}
	if result == nil {
		return report
	}

	report.Model = result.Model
	report.DurationMs = result.Duration().Milliseconds()
	report.Requested = result.Requested
	report.Selected = result.Selected
	report.Report = result.Report
	report.Failures = result.Failures
	report.Policy.SamplesReceived = result.PolicyStats.SamplesReceived
	report.Policy.SamplesPersisted = result.PolicyStats.SamplesPersisted
	report.Policy.FlushTriggers = result.PolicyStats.FlushTriggers
	return report
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *BatchRunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	if err := writeRunReportFile(report, path); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

func writeRunReportFile(report *BatchRunReport, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer iox.CloseInto(f, &err)
	return writeRunReportTo(report, f)
}

// writeRunReportTo writes report JSON to any writer (for testing).
func writeRunReportTo(report *BatchRunReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *BatchRunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
