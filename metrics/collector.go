// Package metrics collects per-batch counters.
//
// The Collector accumulates counters during a single batch. It is a leaf
// package with no internal dependencies. Persistence counters for results are
// absorbed from policy.Stats at batch completion rather than recorded live.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all batch counters.
type Snapshot struct {
	// Samples
	SamplesAttempted   int64 `json:"samples_attempted"`
	SamplesScored      int64 `json:"samples_scored"`
	SamplesCorrect     int64 `json:"samples_correct"`
	ExtractionFailures int64 `json:"extraction_failures"`
	LabelFailures      int64 `json:"label_failures"`
	InvocationFailures int64 `json:"invocation_failures"`

	// Link
	TransfersOK   int64 `json:"transfers_ok"`
	ChannelErrors int64 `json:"channel_errors"`
	ShortReads    int64 `json:"short_reads"`
	BytesSent     int64 `json:"bytes_sent"`
	BytesReceived int64 `json:"bytes_received"`

	// Storage (per call, not per record)
	StorageWriteSuccess int64 `json:"storage_write_success"`
	StorageWriteFailure int64 `json:"storage_write_failure"`

	// Results (absorbed from policy.Stats)
	ResultsReceived  int64 `json:"results_received"`
	ResultsPersisted int64 `json:"results_persisted"`

	// Dimensions
	Suite          string `json:"suite"`
	Policy         string `json:"policy"`
	StorageBackend string `json:"storage_backend"`
	RunID          string `json:"run_id"`
}

// Collector accumulates metrics during a single batch.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe so callers
// can pass a nil *Collector when metrics are not wanted.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(suite, policy, storageBackend, runID string) *Collector {
	return &Collector{s: Snapshot{
		Suite:          suite,
		Policy:         policy,
		StorageBackend: storageBackend,
		RunID:          runID,
	}}
}

func (c *Collector) update(fn func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

// --- Samples ---

// IncAttempted records a sample drawn into the batch.
func (c *Collector) IncAttempted() { c.update(func(s *Snapshot) { s.SamplesAttempted++ }) }

// IncScored records a scored sample and whether it was correct.
func (c *Collector) IncScored(correct bool) {
	c.update(func(s *Snapshot) {
		s.SamplesScored++
		if correct {
			s.SamplesCorrect++
		}
	})
}

// IncExtractionFailure records a sample whose features could not be computed.
func (c *Collector) IncExtractionFailure() {
	c.update(func(s *Snapshot) { s.ExtractionFailures++ })
}

// IncLabelFailure records a sample with no usable ground truth.
func (c *Collector) IncLabelFailure() { c.update(func(s *Snapshot) { s.LabelFailures++ }) }

// IncInvocationFailure records a failed model invocation.
func (c *Collector) IncInvocationFailure() {
	c.update(func(s *Snapshot) { s.InvocationFailures++ })
}

// --- Link ---

// AddTransfer records a completed exchange with its byte counts.
func (c *Collector) AddTransfer(sent, received int) {
	c.update(func(s *Snapshot) {
		s.TransfersOK++
		s.BytesSent += int64(sent)
		s.BytesReceived += int64(received)
	})
}

// IncChannelError records an open, write or read failure on the link.
func (c *Collector) IncChannelError() { c.update(func(s *Snapshot) { s.ChannelErrors++ }) }

// AddShortRead records a response that ended before the expected length.
func (c *Collector) AddShortRead(sent, received int) {
	c.update(func(s *Snapshot) {
		s.ShortReads++
		s.BytesSent += int64(sent)
		s.BytesReceived += int64(received)
	})
}

// --- Storage ---

// IncStorageWriteSuccess records a successful storage write call.
func (c *Collector) IncStorageWriteSuccess() {
	c.update(func(s *Snapshot) { s.StorageWriteSuccess++ })
}

// IncStorageWriteFailure records a failed storage write call.
func (c *Collector) IncStorageWriteFailure() {
	c.update(func(s *Snapshot) { s.StorageWriteFailure++ })
}

// AbsorbPolicyStats copies result persistence counters from policy.Stats.
// Called once after the batch completes.
func (c *Collector) AbsorbPolicyStats(received, persisted int64) {
	c.update(func(s *Snapshot) {
		s.ResultsReceived = received
		s.ResultsPersisted = persisted
	})
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
