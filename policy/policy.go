// Package policy controls how evaluation records reach storage.
//
// A policy receives one SampleRecord per attempted sample and one
// BatchRecord when the batch ends. Records are never dropped: a sink
// failure is returned to the harness, which reports it as a persistence
// failure without changing the batch accuracy.
package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/benchlink/types"
)

// Names accepted by the configuration.
const (
	NameStrict   = "strict"
	NameBuffered = "buffered"
	NameNoop     = "noop"
)

// Flush triggers recorded in Stats.FlushTriggers.
const (
	TriggerThreshold = "threshold"
	TriggerBatchEnd  = "batch_end"
	TriggerExplicit  = "explicit"
)

// Policy defines the persistence policy interface.
type Policy interface {
	// IngestSample handles the record of one attempted sample.
	IngestSample(ctx context.Context, rec *types.SampleRecord) error

	// IngestBatch writes any buffered samples, then the batch summary.
	IngestBatch(ctx context.Context, rec *types.BatchRecord) error

	// Flush writes any buffered data.
	Flush(ctx context.Context) error

	// Close releases the sink.
	Close() error

	// Stats returns a consistent snapshot of policy counters.
	Stats() Stats
}

// Stats represents policy observability counters.
type Stats struct {
	// SamplesReceived is the number of sample records handed to the policy.
	SamplesReceived int64
	// SamplesPersisted is the number of sample records the sink accepted.
	SamplesPersisted int64
	// BatchesPersisted is the number of batch records the sink accepted.
	BatchesPersisted int64
	// BufferSize is the number of sample records currently held.
	BufferSize int64
	// FlushCount is the number of flush operations.
	FlushCount int64
	// FlushTriggers counts flushes by cause.
	FlushTriggers map[string]int64
	// Errors is the number of sink failures.
	Errors int64
}

// statsRecorder is a mutex-guarded Stats shared by the policies.
//
// StrictPolicy and NoopPolicy use the locking methods. BufferedPolicy uses
// the Locked variants while holding its own mutex, so buffer state and
// counters change together.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{stats: Stats{FlushTriggers: make(map[string]int64)}}
}

func (r *statsRecorder) incReceived() {
	r.mu.Lock()
	r.incReceivedLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) incPersisted(n int64) {
	r.mu.Lock()
	r.incPersistedLocked(n)
	r.mu.Unlock()
}

func (r *statsRecorder) incBatches() {
	r.mu.Lock()
	r.incBatchesLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.incErrorsLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) incFlush(trigger string) {
	r.mu.Lock()
	r.incFlushLocked(trigger)
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(r.stats.BufferSize)
}

// --- Locked methods for BufferedPolicy ---
// Caller must hold BufferedPolicy.mu.

func (r *statsRecorder) incReceivedLocked() {
	r.stats.SamplesReceived++
}

func (r *statsRecorder) incPersistedLocked(n int64) {
	r.stats.SamplesPersisted += n
}

func (r *statsRecorder) incBatchesLocked() {
	r.stats.BatchesPersisted++
}

func (r *statsRecorder) incErrorsLocked() {
	r.stats.Errors++
}

func (r *statsRecorder) incFlushLocked(trigger string) {
	r.stats.FlushCount++
	r.stats.FlushTriggers[trigger]++
}

func (r *statsRecorder) snapshotLocked(bufferSize int64) Stats {
	s := r.stats
	s.BufferSize = bufferSize
	s.FlushTriggers = make(map[string]int64, len(r.stats.FlushTriggers))
	for k, v := range r.stats.FlushTriggers {
		s.FlushTriggers[k] = v
	}
	return s
}
