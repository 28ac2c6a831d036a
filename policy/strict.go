package policy

import (
	"context"

	"github.com/pithecene-io/benchlink/types"
)

// StrictPolicy writes every record as it arrives.
// Nothing is buffered; the harness waits on sink latency and sink errors
// are returned unchanged.
type StrictPolicy struct {
	sink  Sink
	stats *statsRecorder
}

// NewStrictPolicy creates a new strict policy writing to the given sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{sink: sink, stats: newStatsRecorder()}
}

// IngestSample writes the record immediately (batch of 1).
func (p *StrictPolicy) IngestSample(ctx context.Context, rec *types.SampleRecord) error {
	p.stats.incReceived()
	if err := p.sink.WriteSamples(ctx, []*types.SampleRecord{rec}); err != nil {
		p.stats.incErrors()
		return err
	}
	p.stats.incPersisted(1)
	return nil
}

// IngestBatch writes the batch summary immediately.
func (p *StrictPolicy) IngestBatch(ctx context.Context, rec *types.BatchRecord) error {
	if err := p.sink.WriteBatch(ctx, rec); err != nil {
		p.stats.incErrors()
		return err
	}
	p.stats.incBatches()
	return nil
}

// Flush is a no-op for strict policy (nothing is buffered).
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.stats.incFlush(TriggerExplicit)
	return nil
}

// Close closes the underlying sink.
func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns policy statistics.
func (p *StrictPolicy) Stats() Stats {
	return p.stats.snapshot()
}

var _ Policy = (*StrictPolicy)(nil)
