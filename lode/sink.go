// Package lode persists evaluation records in a Lode dataset.
//
// Records are JSONL, partitioned Hive-style by suite, day, run_id and
// record_kind, on the local filesystem or S3.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/policy"
	"github.com/pithecene-io/benchlink/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "benchlink"

// PartitionKeys is the Hive layout shared by the write and read paths.
var PartitionKeys = []string{"suite", "day", "run_id", "record_kind"}

// DeriveDay computes the partition day from the batch start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config identifies where a batch's records land.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Suite is the partition key for the evaluation suite.
	Suite string
	// Day is the partition key derived from the batch start (YYYY-MM-DD UTC).
	Day string
	// RunID is the partition key for the batch identifier.
	RunID string
	// Attempt is carried on every record.
	Attempt int
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteSamples writes sample records, preserving order.
	WriteSamples(ctx context.Context, recs []*types.SampleRecord) error

	// WriteBatch writes the batch summary record.
	WriteBatch(ctx context.Context, rec *types.BatchRecord) error

	// WriteMetrics writes the metrics snapshot taken at completedAt.
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error

	// Close releases client resources.
	Close() error
}

// Sink adapts a Client to policy.Sink.
type Sink struct {
	client Client
}

// NewSink creates a new Lode sink.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteSamples implements policy.Sink.
func (s *Sink) WriteSamples(ctx context.Context, recs []*types.SampleRecord) error {
	return s.client.WriteSamples(ctx, recs)
}

// WriteBatch implements policy.Sink.
func (s *Sink) WriteBatch(ctx context.Context, rec *types.BatchRecord) error {
	return s.client.WriteBatch(ctx, rec)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

var _ policy.Sink = (*Sink)(nil)

// StubClient accepts writes without persisting them.
type StubClient struct {
	mu      sync.Mutex
	Samples []*types.SampleRecord
	Batches []*types.BatchRecord
	Metrics []metrics.Snapshot
	Closed  bool
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteSamples implements Client.
func (c *StubClient) WriteSamples(_ context.Context, recs []*types.SampleRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Samples = append(c.Samples, recs...)
	return nil
}

// WriteBatch implements Client.
func (c *StubClient) WriteBatch(_ context.Context, rec *types.BatchRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Batches = append(c.Batches, rec)
	return nil
}

// WriteMetrics implements Client.
func (c *StubClient) WriteMetrics(_ context.Context, snap metrics.Snapshot, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Metrics = append(c.Metrics, snap)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

var _ Client = (*StubClient)(nil)
