package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/benchlink/adapter"
	"github.com/pithecene-io/benchlink/adapter/redis"
	"github.com/pithecene-io/benchlink/adapter/webhook"
	"github.com/pithecene-io/benchlink/log"
	"github.com/pithecene-io/benchlink/runtime"
	"github.com/pithecene-io/benchlink/types"
)

// adapterChoice is the resolved adapter section.
type adapterChoice struct {
	kind    string
	url     string
	channel string
	headers map[string]string
	timeout time.Duration
	retries *int
}

// buildAdapter returns nil when no adapter is configured.
func buildAdapter(a adapterChoice) (adapter.Adapter, error) {
	switch a.kind {
	case "":
		return nil, nil
	case "webhook":
		if a.url == "" {
			return nil, fmt.Errorf("--adapter-url is required for webhook adapter")
		}
		retries := webhook.DefaultRetries
		if a.retries != nil {
			retries = *a.retries
		}
		return webhook.New(webhook.Config{
			URL:     a.url,
			Headers: a.headers,
			Timeout: a.timeout,
			Retries: retries,
		})
	case "redis":
		if a.url == "" {
			return nil, fmt.Errorf("--adapter-url is required for redis adapter")
		}
		retries := redis.DefaultRetries
		if a.retries != nil {
			retries = *a.retries
		}
		return redis.New(redis.Config{
			URL:     a.url,
			Channel: a.channel,
			Timeout: a.timeout,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", a.kind)
	}
}

// batchEvent builds the completion event for a finished batch.
// result is nil when the batch never started.
func batchEvent(meta types.BatchMeta, day, storagePath string, result *runtime.BatchResult, runErr error, now time.Time) *adapter.BatchCompletedEvent {
	code := runtime.DetermineExitCode(result, runErr)
	outcome, _ := runtime.OutcomeFor(code, result, runErr)

	ev := &adapter.BatchCompletedEvent{
		EventType:   adapter.EventTypeBatchCompleted,
		RunID:       meta.RunID,
		Suite:       meta.Suite,
		Day:         day,
		Attempt:     meta.Attempt,
		Outcome:     outcome,
		ExitCode:    code,
		StoragePath: storagePath,
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
	if result != nil {
		ev.Model = result.Model
		ev.Attempted = result.Report.TotalAttempted
		ev.Scored = result.Report.TotalScored
		ev.Correct = result.Report.CorrectCount
		ev.Accuracy = result.Report.Accuracy
		ev.DurationMs = result.Duration().Milliseconds()
	}
	return ev
}

// notify publishes ev and closes the adapter. Failures are logged only.
func notify(ctx context.Context, a adapter.Adapter, ev *adapter.BatchCompletedEvent, logger *log.Logger) {
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing adapter failed", map[string]any{"error": err.Error()})
		}
	}()
	if err := a.Publish(ctx, ev); err != nil {
		logger.Warn("adapter publish failed", map[string]any{
			"outcome": ev.Outcome,
			"error":   err.Error(),
		})
		return
	}
	logger.Info("batch event published", map[string]any{"outcome": ev.Outcome})
}
