package lode

import (
	"context"

	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/policy"
	"github.com/pithecene-io/benchlink/types"
)

// InstrumentedSink wraps a policy.Sink and counts storage writes per call.
type InstrumentedSink struct {
	inner     policy.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner policy.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteSamples delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteSamples(ctx context.Context, recs []*types.SampleRecord) error {
	return s.record(s.inner.WriteSamples(ctx, recs))
}

// WriteBatch delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteBatch(ctx context.Context, rec *types.BatchRecord) error {
	return s.record(s.inner.WriteBatch(ctx, rec))
}

func (s *InstrumentedSink) record(err error) error {
	if err != nil {
		s.collector.IncStorageWriteFailure()
	} else {
		s.collector.IncStorageWriteSuccess()
	}
	return err
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

var _ policy.Sink = (*InstrumentedSink)(nil)
