package policy

import (
	"context"

	"github.com/pithecene-io/benchlink/types"
)

// NoopPolicy accepts every record without persisting it.
// It is used when no storage is configured so the harness path stays the same.
type NoopPolicy struct {
	stats *statsRecorder
}

// NewNoopPolicy creates a new no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{stats: newStatsRecorder()}
}

// IngestSample counts the record.
func (p *NoopPolicy) IngestSample(_ context.Context, _ *types.SampleRecord) error {
	p.stats.incReceived()
	return nil
}

// IngestBatch is a no-op.
func (p *NoopPolicy) IngestBatch(_ context.Context, _ *types.BatchRecord) error {
	return nil
}

// Flush is a no-op.
func (p *NoopPolicy) Flush(_ context.Context) error {
	p.stats.incFlush(TriggerExplicit)
	return nil
}

// Close is a no-op.
func (p *NoopPolicy) Close() error {
	return nil
}

// Stats returns the policy statistics.
func (p *NoopPolicy) Stats() Stats {
	return p.stats.snapshot()
}

var _ Policy = (*NoopPolicy)(nil)
