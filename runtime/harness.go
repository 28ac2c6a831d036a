// Package runtime runs evaluation batches against a device.
//
// A Harness draws samples at random without replacement, extracts a feature
// vector per sample, invokes the device model, and scores the argmax of the
// output against the ground-truth label. Samples that fail extraction,
// carry no label, or fail invocation are attempted but not scored; they
// never abort the batch.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/pithecene-io/benchlink/log"
	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/policy"
	"github.com/pithecene-io/benchlink/types"
)

// persistTimeout bounds the final batch write, even after cancellation.
const persistTimeout = 30 * time.Second

// ErrInvalidCount is returned for a non-positive batch size.
var ErrInvalidCount = errors.New("batch size must be positive")

// Harness evaluates one batch. Extractor and Invoker are required; every
// other field is optional.
type Harness struct {
	Meta      types.BatchMeta
	Extractor Extractor
	Invoker   Invoker
	// Model is recorded on the batch report.
	Model string

	// Rand drives sample selection. Nil seeds from the clock.
	Rand *rand.Rand
	// Pace is a pause between invocations.
	Pace time.Duration

	Logger    *log.Logger
	Collector *metrics.Collector
	Policy    policy.Policy
	Table     *ResultTable
	// OnSample is called after every attempted sample.
	OnSample func(done, total int)
}

// BatchResult is the outcome of Evaluate.
type BatchResult struct {
	Meta        types.BatchMeta
	Model       string
	Requested   int
	Selected    int
	Results     []types.EvaluationResult
	Failures    []types.SampleFailure
	Report      types.BatchReport
	PolicyStats policy.Stats
	// PersistErr is the first storage failure. It never changes Report.
	PersistErr error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the batch.
func (r *BatchResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SelectSamples returns min(count, n) distinct indices in [0, n) in random
// order.
func SelectSamples(rng *rand.Rand, n, count int) []int {
	k := min(count, n)
	if k <= 0 {
		return nil
	}
	return rng.Perm(n)[:k]
}

// Argmax returns the index of the largest value; the first one wins ties.
// It returns -1 for an empty slice.
func Argmax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}

// Evaluate runs one batch over samples. On cancellation the partial result
// is returned together with the context error.
func (h *Harness) Evaluate(ctx context.Context, samples []types.EvaluationSample, count int) (*BatchResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	if h.Extractor == nil || h.Invoker == nil {
		return nil, errors.New("harness requires an extractor and an invoker")
	}

	logger := h.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	pol := h.Policy
	if pol == nil {
		pol = policy.NewNoopPolicy()
	}
	rng := h.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	selected := SelectSamples(rng, len(samples), count)
	res := &BatchResult{
		Meta:      h.Meta,
		Model:     h.Model,
		Requested: count,
		Selected:  len(selected),
		StartedAt: time.Now(),
	}

	logger.Info("starting batch", map[string]any{
		"requested": count,
		"available": len(samples),
		"selected":  len(selected),
		"model":     h.Model,
	})
	h.Table.Header(h.Meta.Suite, len(selected))

	rec := &recorder{policy: pol, logger: logger}
	// Records of samples that did run are kept even after an interrupt.
	recCtx := context.WithoutCancel(ctx)
	attempted := 0
	var runErr error
	for i, idx := range selected {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if i > 0 && h.Pace > 0 {
			if err := sleepCtx(ctx, h.Pace); err != nil {
				runErr = err
				break
			}
		}

		sample := &samples[idx]
		result, outputs, failure, err := h.evaluateOne(ctx, sample)
		if err != nil {
			runErr = err
			break
		}
		attempted++
		h.Collector.IncAttempted()

		if failure != nil {
			res.Failures = append(res.Failures, *failure)
			logger.Warn("sample skipped", map[string]any{
				"sample_id":    failure.SampleID,
				"source":       failure.Source,
				"failure_kind": string(failure.Kind),
				"error":        failure.Message,
			})
			h.Table.Skipped(*failure, sample.Label)
			rec.sample(recCtx, types.RecordFromFailure(i, sample.Label, *failure))
		} else {
			res.Results = append(res.Results, *result)
			h.Collector.IncScored(result.Correct)
			h.Table.Scored(*result)
			rec.sample(recCtx, types.RecordFromResult(i, *result, outputs))
		}

		if h.OnSample != nil {
			h.OnSample(attempted, len(selected))
		}
	}

	res.Report = types.Summarize(attempted, res.Results)
	res.FinishedAt = time.Now()
	h.Table.Summary(res.Report)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	rec.batch(persistCtx, &types.BatchRecord{
		Report:     res.Report,
		Requested:  count,
		Model:      h.Model,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	})
	res.PersistErr = rec.err
	res.PolicyStats = pol.Stats()
	h.Collector.AbsorbPolicyStats(res.PolicyStats.SamplesReceived, res.PolicyStats.SamplesPersisted)

	fields := map[string]any{
		"attempted":   res.Report.TotalAttempted,
		"scored":      res.Report.TotalScored,
		"correct":     res.Report.CorrectCount,
		"duration_ms": res.Duration().Milliseconds(),
	}
	if res.Report.Accuracy != nil {
		fields["accuracy"] = *res.Report.Accuracy
	}
	logger.Info("batch complete", fields)

	return res, runErr
}

// evaluateOne scores a single sample or reports why it was skipped. A
// non-nil error means the batch was interrupted while the sample was in
// flight; the sample then counts as neither attempted nor failed.
func (h *Harness) evaluateOne(ctx context.Context, sample *types.EvaluationSample) (*types.EvaluationResult, []float32, *types.SampleFailure, error) {
	fail := func(kind types.FailureKind, err error) (*types.EvaluationResult, []float32, *types.SampleFailure, error) {
		return nil, nil, &types.SampleFailure{
			SampleID: sample.ID,
			Source:   sample.Source,
			Kind:     kind,
			Message:  err.Error(),
		}, nil
	}

	if sample.Label < 0 {
		h.Collector.IncLabelFailure()
		return fail(types.FailureLabelParse, fmt.Errorf("no ground-truth label for %s", sample.ID))
	}

	fv, err := h.Extractor.Extract(ctx, sample)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, nil, ctxErr
		}
		h.Collector.IncExtractionFailure()
		return fail(types.FailureExtraction, err)
	}

	outputs, err := h.Invoker.Invoke(ctx, fv)
	if err == nil && len(outputs) == 0 {
		err = ErrNoOutput
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, nil, ctxErr
		}
		h.Collector.IncInvocationFailure()
		return fail(types.FailureInvocation, err)
	}

	predicted := Argmax(outputs)
	return &types.EvaluationResult{
		SampleID:  sample.ID,
		Source:    sample.Source,
		Label:     sample.Label,
		Predicted: predicted,
		Correct:   predicted == sample.Label,
	}, outputs, nil, nil
}

// recorder hands records to the policy until the first failure. After a
// failure the batch still completes, but nothing more is written.
type recorder struct {
	policy policy.Policy
	logger *log.Logger
	err    error
}

func (r *recorder) sample(ctx context.Context, rec *types.SampleRecord) {
	if r.err != nil {
		return
	}
	if err := r.policy.IngestSample(ctx, rec); err != nil {
		r.fail("sample", err)
	}
}

func (r *recorder) batch(ctx context.Context, rec *types.BatchRecord) {
	if r.err != nil {
		return
	}
	if err := r.policy.IngestBatch(ctx, rec); err != nil {
		r.fail("batch", err)
	}
}

func (r *recorder) fail(what string, err error) {
	r.err = fmt.Errorf("persist %s: %w", what, err)
	r.logger.Error("persistence failed; remaining records are not stored", map[string]any{
		"record": what,
		"error":  err.Error(),
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
