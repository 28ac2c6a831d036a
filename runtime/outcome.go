package runtime

import (
	"context"
	"errors"
	"fmt"
)

// Process exit codes for an evaluation batch.
const (
	ExitCodeScored      = 0 // at least one sample scored
	ExitCodeNothing     = 1 // no sample could be scored
	ExitCodeSetup       = 2 // connect, discovery or input failure before any sample
	ExitCodePersistence = 3 // results computed but storage failed
	ExitCodeCanceled    = 4 // interrupted before every selected sample ran
)

// Outcome names reported alongside the exit code.
const (
	OutcomeScored      = "scored"
	OutcomeNothing     = "nothing_scored"
	OutcomeSetup       = "setup_failed"
	OutcomePersistence = "persistence_failed"
	OutcomeCanceled    = "canceled"
)

// IsCanceledError reports whether err is a context cancellation or deadline.
func IsCanceledError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// DetermineExitCode maps a batch result and the error Evaluate returned to
// an exit code. Setup failures win over persistence failures, then
// cancellation, then an empty score.
func DetermineExitCode(res *BatchResult, err error) int {
	var se *SetupError
	if res == nil || errors.As(err, &se) {
		return ExitCodeSetup
	}
	if res.PersistErr != nil {
		return ExitCodePersistence
	}
	if IsCanceledError(err) {
		return ExitCodeCanceled
	}
	if !res.Report.HasAccuracy() {
		return ExitCodeNothing
	}
	return ExitCodeScored
}

// OutcomeFor returns the outcome name and a one-line message for code.
func OutcomeFor(code int, res *BatchResult, err error) (string, string) {
	switch code {
	case ExitCodeScored:
		r := res.Report
		return OutcomeScored, fmt.Sprintf("%d/%d scored samples correct (%.2f%%)",
			r.CorrectCount, r.TotalScored, r.AccuracyOr(0)*100)
	case ExitCodeNothing:
		return OutcomeNothing, fmt.Sprintf("no samples could be scored (%d attempted)", res.Report.TotalAttempted)
	case ExitCodePersistence:
		return OutcomePersistence, res.PersistErr.Error()
	case ExitCodeCanceled:
		r := res.Report
		return OutcomeCanceled, fmt.Sprintf("batch canceled after %d of %d selected samples: %v",
			r.TotalAttempted, res.Selected, err)
	default:
		msg := "batch did not start"
		if err != nil {
			msg = err.Error()
		}
		return OutcomeSetup, msg
	}
}
