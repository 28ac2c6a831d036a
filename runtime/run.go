package runtime

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/pithecene-io/benchlink/log"
	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/policy"
	"github.com/pithecene-io/benchlink/session"
	"github.com/pithecene-io/benchlink/types"
)

// BatchConfig configures a single evaluation batch against a device.
type BatchConfig struct {
	// Meta is the batch identity.
	Meta *types.BatchMeta
	// Samples is the pool to draw from.
	Samples []types.EvaluationSample
	// Count is the requested batch size.
	Count int
	// Extractor turns samples into feature vectors.
	Extractor Extractor
	// Session configures the device connection.
	Session session.Options
	// Connector overrides session creation (for testing).
	// If nil, uses session.Connect.
	Connector Connector
	// Seed seeds sample selection. Zero seeds from the clock.
	Seed int64
	// Pace is a pause between invocations.
	Pace time.Duration
	// Policy is the persistence policy. If nil, nothing is stored.
	Policy policy.Policy
	// Collector is the metrics collector for this batch.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Table prints per-sample lines. If nil, nothing is printed.
	Table *ResultTable
	// OnSample is called after every attempted sample.
	OnSample func(done, total int)
	// Logger overrides the default stderr logger.
	Logger *log.Logger
}

// BatchOrchestrator connects to the device and runs one batch.
type BatchOrchestrator struct {
	config *BatchConfig
	logger *log.Logger
}

// NewBatchOrchestrator validates the configuration.
func NewBatchOrchestrator(config *BatchConfig) (*BatchOrchestrator, error) {
	if config.Meta == nil {
		return nil, errors.New("batch metadata is required")
	}
	if err := config.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch metadata: %w", err)
	}
	if config.Count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, config.Count)
	}
	if config.Extractor == nil {
		return nil, errors.New("extractor is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.Meta)
	}
	return &BatchOrchestrator{config: config, logger: logger}, nil
}

// Execute runs the batch end-to-end.
//
// Execution flow:
//  1. Connect and discover the model (failures are fatal, no sample is attempted)
//  2. Evaluate the selected samples
//  3. Persist the batch summary
//  4. Close the session
func (o *BatchOrchestrator) Execute(ctx context.Context) (*BatchResult, error) {
	cfg := o.config
	o.logger.Info("connecting to device", map[string]any{
		"transport": cfg.Session.Transport,
		"address":   cfg.Session.Address,
	})

	invoker, err := OpenSessionInvoker(ctx, cfg.Connector, cfg.Session)
	if err != nil {
		fields := map[string]any{"error": err.Error()}
		var se *SetupError
		if errors.As(err, &se) {
			fields["failure_kind"] = string(se.Kind)
		}
		o.logger.Error("device setup failed", fields)
		return nil, err
	}
	defer func() {
		if err := invoker.Close(); err != nil {
			o.logger.Warn("closing session failed", map[string]any{"error": err.Error()})
		}
	}()
	o.logger.Info("model found", map[string]any{"model": invoker.Model()})

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	h := &Harness{
		Meta:      *cfg.Meta,
		Extractor: cfg.Extractor,
		Invoker:   invoker,
		Model:     invoker.Model(),
		Rand:      rand.New(rand.NewSource(seed)),
		Pace:      cfg.Pace,
		Logger:    o.logger,
		Collector: cfg.Collector,
		Policy:    cfg.Policy,
		Table:     cfg.Table,
		OnSample:  cfg.OnSample,
	}
	return h.Evaluate(ctx, cfg.Samples, cfg.Count)
}
