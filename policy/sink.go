package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/benchlink/types"
)

// Sink abstracts persistence for policies.
// Implementations may write to storage or record writes for tests.
type Sink interface {
	// WriteSamples persists sample records, preserving their order.
	WriteSamples(ctx context.Context, recs []*types.SampleRecord) error

	// WriteBatch persists the batch summary.
	WriteBatch(ctx context.Context, rec *types.BatchRecord) error

	// Close releases any resources held by the sink.
	Close() error
}

// StubSink is a test sink that keeps every write in memory.
type StubSink struct {
	mu sync.Mutex

	// SampleBatches is the number of WriteSamples calls that succeeded.
	SampleBatches int
	// Samples holds every written sample record in order.
	Samples []*types.SampleRecord
	// Batches holds every written batch record.
	Batches []*types.BatchRecord
	// Closed indicates whether Close was called.
	Closed bool

	// ErrorOnWrite, if non-nil, is returned by every write.
	ErrorOnWrite error
}

// NewStubSink creates a new stub sink for testing.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// WriteSamples records the samples.
func (s *StubSink) WriteSamples(_ context.Context, recs []*types.SampleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}
	s.SampleBatches++
	s.Samples = append(s.Samples, recs...)
	return nil
}

// WriteBatch records the batch summary.
func (s *StubSink) WriteBatch(_ context.Context, rec *types.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}
	s.Batches = append(s.Batches, rec)
	return nil
}

// Close marks the sink as closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	return nil
}

// SetError changes the error returned by subsequent writes.
func (s *StubSink) SetError(err error) {
	s.mu.Lock()
	s.ErrorOnWrite = err
	s.mu.Unlock()
}

// Written returns a copy of the written sample records.
func (s *StubSink) Written() []*types.SampleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.SampleRecord(nil), s.Samples...)
}

var _ Sink = (*StubSink)(nil)
