package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/pithecene-io/benchlink/log"
	"github.com/pithecene-io/benchlink/types"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferSamples is the number of sample records held before a flush.
	MaxBufferSamples int

	// Logger is an optional logger for policy observability.
	// If nil, no logging is emitted.
	Logger *log.Logger
}

// DefaultBufferedConfig returns the defaults used by the CLI.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{MaxBufferSamples: 50}
}

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: MaxBufferSamples must be positive")

// BufferedPolicy holds sample records and writes them in batches.
//
// The buffer is written when it reaches MaxBufferSamples, before the batch
// summary, and on Flush. A failed write keeps every buffered record so the
// next flush retries it; duplicates are preferred over loss.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu     sync.Mutex // guards buffer state
	buffer []*types.SampleRecord
	stats  *statsRecorder
}

// NewBufferedPolicy creates a new buffered policy.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferSamples <= 0 {
		return nil, ErrInvalidConfig
	}
	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		buffer: make([]*types.SampleRecord, 0, config.MaxBufferSamples),
		stats:  newStatsRecorder(),
	}, nil
}

// IngestSample buffers the record and flushes once the threshold is reached.
func (p *BufferedPolicy) IngestSample(ctx context.Context, rec *types.SampleRecord) error {
	p.mu.Lock()
	p.stats.incReceivedLocked()
	p.buffer = append(p.buffer, rec)
	full := len(p.buffer) >= p.config.MaxBufferSamples
	p.mu.Unlock()

	if !full {
		return nil
	}
	return p.flush(ctx, TriggerThreshold)
}

// IngestBatch flushes buffered samples, then writes the batch summary.
// The summary is not written when the sample flush fails.
func (p *BufferedPolicy) IngestBatch(ctx context.Context, rec *types.BatchRecord) error {
	if err := p.flush(ctx, TriggerBatchEnd); err != nil {
		return err
	}
	if err := p.sink.WriteBatch(ctx, rec); err != nil {
		p.mu.Lock()
		p.stats.incErrorsLocked()
		p.mu.Unlock()
		p.logFlushFailure("batch", err)
		return err
	}
	p.mu.Lock()
	p.stats.incBatchesLocked()
	p.mu.Unlock()
	return nil
}

// Flush writes all buffered sample records.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	return p.flush(ctx, TriggerExplicit)
}

func (p *BufferedPolicy) flush(ctx context.Context, trigger string) error {
	p.mu.Lock()
	p.stats.incFlushLocked(trigger)
	pending := p.buffer[:len(p.buffer):len(p.buffer)]
	p.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if err := p.sink.WriteSamples(ctx, pending); err != nil {
		p.mu.Lock()
		p.stats.incErrorsLocked()
		p.mu.Unlock()
		p.logFlushFailure("samples", err)
		return err
	}

	// Records ingested while the write was in flight stay buffered.
	p.mu.Lock()
	p.stats.incPersistedLocked(int64(len(pending)))
	rest := p.buffer[len(pending):]
	p.buffer = append(make([]*types.SampleRecord, 0, p.config.MaxBufferSamples), rest...)
	p.mu.Unlock()
	return nil
}

// Close closes the sink. Buffered records that were never flushed are lost;
// callers flush first.
func (p *BufferedPolicy) Close() error {
	p.mu.Lock()
	lost := len(p.buffer)
	p.mu.Unlock()
	if lost > 0 && p.logger != nil {
		p.logger.Warn("closing policy with unflushed samples", map[string]any{
			"buffered": lost,
		})
	}
	return p.sink.Close()
}

// Stats returns an atomic snapshot of the policy counters.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshotLocked(int64(len(p.buffer)))
}

func (p *BufferedPolicy) logFlushFailure(what string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("flush failed", map[string]any{
		"records": what,
		"error":   err.Error(),
	})
}

var _ Policy = (*BufferedPolicy)(nil)
