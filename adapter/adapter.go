// Package adapter publishes batch completion notifications to downstream
// systems. Adapters are best effort: a failed publish is reported to the
// caller, which logs it and never changes the batch outcome.
package adapter

import (
	"context"
	"fmt"
	"time"
)

// EventTypeBatchCompleted is the only event type published.
const EventTypeBatchCompleted = "batch_completed"

// BatchCompletedEvent is the payload published when a batch finishes.
type BatchCompletedEvent struct {
	EventType   string   `json:"event_type"` // always "batch_completed"
	RunID       string   `json:"run_id"`
	Suite       string   `json:"suite"`
	Day         string   `json:"day"`
	Attempt     int      `json:"attempt"`
	Model       string   `json:"model,omitempty"`
	Outcome     string   `json:"outcome"` // scored, nothing_scored, setup_failed, persistence_failed
	ExitCode    int      `json:"exit_code"`
	Attempted   int      `json:"total_attempted"`
	Scored      int      `json:"total_scored"`
	Correct     int      `json:"correct_count"`
	Accuracy    *float64 `json:"accuracy"`
	StoragePath string   `json:"storage_path,omitempty"`
	Timestamp   string   `json:"timestamp"` // RFC 3339
	DurationMs  int64    `json:"duration_ms"`
}

// Adapter publishes batch completion events to a downstream system.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *BatchCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Backoff is the wait before retry i (1-based): 500ms, 1s, 2s, ...
func Backoff(i int) time.Duration {
	return time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
}

// Retry calls attempt up to 1+retries times with Backoff between calls.
// attempt returns done=true to stop early (success or a non-retriable
// failure). The returned error wraps the last failure.
func Retry(ctx context.Context, name string, retries int, attempt func(ctx context.Context) (done bool, err error)) error {
	attempts := 1 + retries
	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}
		if i > 0 {
			t := time.NewTimer(Backoff(i))
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-t.C:
			}
		}

		done, err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if done {
			return fmt.Errorf("%s: non-retriable error: %w", name, err)
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
