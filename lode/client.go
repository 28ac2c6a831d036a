package lode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/types"
)

// ErrMissingPartition is returned when a partition key is empty.
var ErrMissingPartition = errors.New("partition key is empty")

// LodeClient is a Lode-backed implementation of Client.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error

	mu sync.Mutex // serializes dataset writes
}

// NewLodeClient creates a client with filesystem storage rooted at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ds, err := NewReadDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return newClient(ds, cfg, factory), nil
}

func newClient(ds lode.Dataset, cfg Config, factory lode.StoreFactory) *LodeClient {
	return &LodeClient{dataset: ds, config: cfg, storeFactory: factory}
}

func (c Config) validate() error {
	for key, v := range map[string]string{
		"dataset": c.Dataset,
		"suite":   c.Suite,
		"day":     c.Day,
		"run_id":  c.RunID,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s", ErrMissingPartition, key)
		}
	}
	return nil
}

// WriteSamples writes sample records in one snapshot.
func (c *LodeClient) WriteSamples(ctx context.Context, recs []*types.SampleRecord) error {
	if len(recs) == 0 {
		return nil
	}
	records := make([]any, 0, len(recs))
	for _, r := range recs {
		records = append(records, toSampleRecordMap(r, c.config))
	}
	return c.write(ctx, records, RecordKindSample)
}

// WriteBatch writes the batch summary record.
func (c *LodeClient) WriteBatch(ctx context.Context, rec *types.BatchRecord) error {
	return c.write(ctx, []any{toBatchRecordMap(rec, c.config)}, RecordKindBatch)
}

// WriteMetrics writes a metrics snapshot record.
func (c *LodeClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	return c.write(ctx, []any{toMetricsRecordMap(snap, c.config, completedAt)}, RecordKindMetric)
}

func (c *LodeClient) write(ctx context.Context, records []any, kind string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.partitionPath(kind))
	}
	return nil
}

// partitionPath is the Hive path of a record kind, used in error messages.
func (c *LodeClient) partitionPath(kind string) string {
	return fmt.Sprintf("%s/suite=%s/day=%s/run_id=%s/record_kind=%s",
		c.config.Dataset, c.config.Suite, c.config.Day, c.config.RunID, kind)
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

var _ Client = (*LodeClient)(nil)
