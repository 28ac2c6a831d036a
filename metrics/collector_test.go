package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("fsdd", "strict", "fs", "run-001")

	c.IncAttempted()
	c.IncAttempted()
	c.IncAttempted()
	c.IncScored(true)
	c.IncScored(false)
	c.IncExtractionFailure()
	c.IncLabelFailure()
	c.IncInvocationFailure()
	c.IncInvocationFailure()
	c.AddTransfer(16386, 16384)
	c.AddShortRead(16386, 100)
	c.IncChannelError()
	c.IncStorageWriteSuccess()
	c.IncStorageWriteFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"SamplesAttempted", s.SamplesAttempted, 3},
		{"SamplesScored", s.SamplesScored, 2},
		{"SamplesCorrect", s.SamplesCorrect, 1},
		{"ExtractionFailures", s.ExtractionFailures, 1},
		{"LabelFailures", s.LabelFailures, 1},
		{"InvocationFailures", s.InvocationFailures, 2},
		{"TransfersOK", s.TransfersOK, 1},
		{"ShortReads", s.ShortReads, 1},
		{"ChannelErrors", s.ChannelErrors, 1},
		{"BytesSent", s.BytesSent, 32772},
		{"BytesReceived", s.BytesReceived, 16484},
		{"StorageWriteSuccess", s.StorageWriteSuccess, 1},
		{"StorageWriteFailure", s.StorageWriteFailure, 1},
	}
	for _, tc := range checks {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("mnist", "buffered", "s3", "run-9").Snapshot()
	if s.Suite != "mnist" || s.Policy != "buffered" || s.StorageBackend != "s3" || s.RunID != "run-9" {
		t.Errorf("unexpected dimensions: %+v", s)
	}
}

func TestCollector_NilReceiver(t *testing.T) {
	var c *Collector
	c.IncAttempted()
	c.IncScored(true)
	c.AddTransfer(1, 1)
	c.AbsorbPolicyStats(1, 1)
	if s := c.Snapshot(); s.SamplesAttempted != 0 {
		t.Errorf("nil collector snapshot = %+v, want zero", s)
	}
}

func TestCollector_AbsorbPolicyStats(t *testing.T) {
	c := NewCollector("fsdd", "strict", "fs", "run-001")
	c.AbsorbPolicyStats(20, 18)
	s := c.Snapshot()
	if s.ResultsReceived != 20 || s.ResultsPersisted != 18 {
		t.Errorf("absorbed = %d/%d, want 20/18", s.ResultsReceived, s.ResultsPersisted)
	}
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := NewCollector("fsdd", "strict", "fs", "run-001")
	c.IncAttempted()
	before := c.Snapshot()
	c.IncAttempted()
	if before.SamplesAttempted != 1 {
		t.Errorf("snapshot mutated: %d", before.SamplesAttempted)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("fsdd", "strict", "fs", "run-001")
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncAttempted()
			c.AddTransfer(2, 1)
		}()
	}
	wg.Wait()
	s := c.Snapshot()
	if s.SamplesAttempted != 50 || s.BytesSent != 100 {
		t.Errorf("concurrent counts = %d/%d, want 50/100", s.SamplesAttempted, s.BytesSent)
	}
}
