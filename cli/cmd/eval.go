package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchlink/cli/config"
	"github.com/pithecene-io/benchlink/cli/render"
	"github.com/pithecene-io/benchlink/dataset"
	"github.com/pithecene-io/benchlink/features"
	"github.com/pithecene-io/benchlink/iox"
	"github.com/pithecene-io/benchlink/lode"
	"github.com/pithecene-io/benchlink/log"
	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/policy"
	"github.com/pithecene-io/benchlink/runtime"
	"github.com/pithecene-io/benchlink/session"
	"github.com/pithecene-io/benchlink/types"
)

// Exit codes for eval.
const (
	exitScored      = runtime.ExitCodeScored
	exitNothing     = runtime.ExitCodeNothing
	exitSetup       = runtime.ExitCodeSetup
	exitPersistence = runtime.ExitCodePersistence
	exitCanceled    = runtime.ExitCodeCanceled
)

// connectSession opens the device session. Tests replace it.
var connectSession runtime.Connector = runtime.DefaultConnector

// Output streams for eval. Tests replace them.
var (
	evalStdout io.Writer = os.Stdout
	evalStderr io.Writer = os.Stderr
)

// EvalCommand returns the eval command.
// This is the only command that runs inference on the device.
func EvalCommand() *cli.Command {
	return &cli.Command{
		Name:  "eval",
		Usage: "Evaluate a random batch of samples against the deployed model",
		Subcommands: []*cli.Command{
			{
				Name:  types.SuiteMNIST,
				Usage: "Evaluate handwritten digits (Hu moments)",
				Flags: append(evalFlags(),
					&cli.StringFlag{Name: "images", Usage: "Path to MNIST images (IDX)"},
					&cli.StringFlag{Name: "labels", Usage: "Path to MNIST labels (IDX)"},
				),
				Action: evalAction(types.SuiteMNIST),
			},
			{
				Name:  types.SuiteFSDD,
				Usage: "Evaluate spoken digits (MFCC)",
				Flags: append(evalFlags(),
					&cli.StringFlag{Name: "recordings", Usage: "Directory of <digit>_<speaker>_<index>.wav files"},
				),
				Action: evalAction(types.SuiteFSDD),
			},
		},
	}
}

func evalFlags() []cli.Flag {
	flags := []cli.Flag{
		ConfigFlag,
		// Device flags
		&cli.StringFlag{Name: "transport", Usage: "Session transport: serial or tcp"},
		&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Serial device path or host:port"},
		&cli.IntFlag{Name: "baud", Usage: "Serial baud rate"},
		&cli.DurationFlag{Name: "session-timeout", Usage: "Per-request session timeout"},
		// Batch flags
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Number of samples to evaluate"},
		&cli.Int64Flag{Name: "seed", Usage: "Selection seed (0 seeds from the clock)"},
		&cli.DurationFlag{Name: "pace", Usage: "Pause between invocations"},
		&cli.StringFlag{Name: "run-id", Usage: "Batch run ID (default: random UUID)"},
		&cli.IntFlag{Name: "attempt", Usage: "Attempt number", Value: 1},
		// Policy flags
		&cli.StringFlag{Name: "policy", Usage: "Persistence policy: strict or buffered"},
		&cli.IntFlag{Name: "buffer-results", Usage: "Max buffered sample records (buffered policy)"},
		// Adapter flags
		&cli.StringFlag{Name: "adapter", Usage: "Completion notification adapter: webhook or redis"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Webhook endpoint or redis:// URL"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
		&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-publish timeout"},
		&cli.IntFlag{Name: "adapter-retries", Usage: "Publish retry attempts"},
		// Output flags
		&cli.StringFlag{Name: "report", Usage: "Write a JSON batch report to this path (- for stderr)"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress the per-sample table"},
		&cli.BoolFlag{Name: "progress", Usage: "Show a progress bar on stderr"},
		NoColorFlag,
	}
	return append(flags, StorageFlags()...)
}

// evalChoice is everything eval resolves before touching the device.
type evalChoice struct {
	meta     types.BatchMeta
	count    int
	seed     int64
	pace     time.Duration
	session  session.Options
	features features.Config
	storage  storageChoice
	policy   string
	buffer   int
	adapter  adapterChoice
}

func resolveEval(c *cli.Context, cfg *config.Config, suite string) (evalChoice, error) {
	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}
	ch := evalChoice{
		meta:  types.BatchMeta{RunID: runID, Suite: suite, Attempt: c.Int("attempt")},
		count: resolveInt(c, "count", cfg.Batch.Size),
		seed:  resolveInt64(c, "seed", cfg.Batch.Seed),
		pace:  c.Duration("pace"),
		session: session.Options{
			Transport: resolveString(c, "transport", cfg.Session.Transport),
			Address:   resolveString(c, "address", cfg.Session.Address),
			BaudRate:  resolveInt(c, "baud", cfg.Session.BaudRate),
			Timeout:   resolveDuration(c, "session-timeout", cfg.Session.Timeout.Duration),
		},
		features: cfg.ExtractorConfig(),
		storage:  resolveStorage(c, cfg),
		policy:   resolveString(c, "policy", cfg.Policy.Name),
		buffer:   resolveInt(c, "buffer-results", cfg.Policy.BufferResults),
		adapter: adapterChoice{
			kind:    resolveString(c, "adapter", cfg.Adapter.Type),
			url:     resolveString(c, "adapter-url", cfg.Adapter.URL),
			channel: resolveString(c, "adapter-channel", cfg.Adapter.Channel),
			headers: cfg.Adapter.Headers,
			timeout: resolveDuration(c, "adapter-timeout", cfg.Adapter.Timeout.Duration),
			retries: cfg.Adapter.Retries,
		},
	}
	if c.IsSet("adapter-retries") {
		n := c.Int("adapter-retries")
		ch.adapter.retries = &n
	}

	if ch.session.Address == "" {
		return ch, errors.New("--address is required (or session.address in --config)")
	}
	if ch.count <= 0 {
		return ch, fmt.Errorf("--count must be > 0, got %d", ch.count)
	}
	if err := ch.meta.Validate(); err != nil {
		return ch, err
	}
	if err := ch.storage.validate(); err != nil {
		return ch, err
	}
	return ch, validatePolicy(ch.policy, ch.buffer)
}

func validatePolicy(name string, buffer int) error {
	switch name {
	case policy.NameStrict:
		return nil
	case policy.NameBuffered:
		if buffer <= 0 {
			return fmt.Errorf("buffered policy requires --buffer-results > 0")
		}
		return nil
	default:
		return fmt.Errorf("invalid policy: %s (must be strict or buffered)", name)
	}
}

// loadPool loads the sample pool and builds the matching extractor.
func loadPool(c *cli.Context, cfg *config.Config, suite string, fc features.Config, logger *log.Logger) ([]types.EvaluationSample, runtime.Extractor, error) {
	switch suite {
	case types.SuiteMNIST:
		images := resolveString(c, "images", cfg.Dataset.MNISTImages)
		labels := resolveString(c, "labels", cfg.Dataset.MNISTLabels)
		if images == "" || labels == "" {
			return nil, nil, errors.New("--images and --labels are required (or dataset.mnist_* in --config)")
		}
		samples, err := dataset.LoadMNIST(images, labels)
		if err != nil {
			return nil, nil, err
		}
		return samples, runtime.NewMomentPipeline(fc), nil

	case types.SuiteFSDD:
		dir := resolveString(c, "recordings", cfg.Dataset.RecordingsDir)
		if dir == "" {
			return nil, nil, errors.New("--recordings is required (or dataset.recordings_dir in --config)")
		}
		samples, excluded, err := dataset.ScanRecordings(dir)
		if err != nil {
			return nil, nil, err
		}
		for _, ex := range excluded {
			logger.Warn("recording excluded", map[string]any{"file": ex.Name, "error": ex.Err.Error()})
		}
		ext, err := runtime.NewCepstralPipeline(fc)
		if err != nil {
			return nil, nil, err
		}
		return samples, ext, nil

	default:
		return nil, nil, fmt.Errorf("unknown suite: %s", suite)
	}
}

// persistence is the storage side of one batch.
type persistence struct {
	policy    policy.Policy
	name      string
	client    *lode.LodeClient
	collector *metrics.Collector
}

func buildPersistence(ctx context.Context, ch evalChoice, startTime time.Time, logger *log.Logger) (*persistence, error) {
	if !ch.storage.enabled() {
		return &persistence{
			policy:    policy.NewNoopPolicy(),
			name:      policy.NameNoop,
			collector: metrics.NewCollector(ch.meta.Suite, policy.NameNoop, "none", ch.meta.RunID),
		}, nil
	}

	client, err := newLodeClient(ctx, ch.storage, lode.Config{
		Suite:   ch.meta.Suite,
		Day:     lode.DeriveDay(startTime),
		RunID:   ch.meta.RunID,
		Attempt: ch.meta.Attempt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Lode client: %w", err)
	}

	collector := metrics.NewCollector(ch.meta.Suite, ch.policy, ch.storage.backend, ch.meta.RunID)
	sink := lode.NewInstrumentedSink(lode.NewSink(client), collector)

	var pol policy.Policy
	switch ch.policy {
	case policy.NameBuffered:
		pol, err = policy.NewBufferedPolicy(sink, policy.BufferedConfig{
			MaxBufferSamples: ch.buffer,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
	default:
		pol = policy.NewStrictPolicy(sink)
	}
	return &persistence{policy: pol, name: ch.policy, client: client, collector: collector}, nil
}

// finish flushes and closes the policy, then writes the metrics record.
// A flush failure becomes the batch's persistence failure when none was
// recorded yet; a metrics write failure is only logged.
func (p *persistence) finish(result *runtime.BatchResult, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	if err := p.policy.Flush(ctx); err != nil && result != nil && result.PersistErr == nil {
		result.PersistErr = err
	}
	stats := p.policy.Stats()
	p.collector.AbsorbPolicyStats(stats.SamplesReceived, stats.SamplesPersisted)
	if result != nil {
		result.PolicyStats = stats
	}

	if p.client != nil {
		if err := p.client.WriteMetrics(ctx, p.collector.Snapshot(), time.Now()); err != nil {
			logger.Warn("writing metrics record failed", map[string]any{"error": err.Error()})
		}
	}
	if err := p.policy.Close(); err != nil {
		logger.Warn("closing policy failed", map[string]any{"error": err.Error()})
	}
}

func evalAction(suite string) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return setupExit("invalid config: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			return setupExit("invalid config: %v", err)
		}
		ch, err := resolveEval(c, cfg, suite)
		if err != nil {
			return setupExit("%v", err)
		}

		logger := log.NewLogger(&ch.meta).WithOutput(evalStderr)
		defer iox.DiscardErr(logger.Sync)

		samples, extractor, err := loadPool(c, cfg, suite, ch.features, logger)
		if err != nil {
			return setupExit("failed to load %s samples: %v", suite, err)
		}
		if len(samples) == 0 {
			return setupExit("no %s samples found", suite)
		}

		notifier, err := buildAdapter(ch.adapter)
		if err != nil {
			return setupExit("invalid adapter config: %v", err)
		}

		// Start time is "now"; it derives the partition day.
		startTime := time.Now()
		persist, err := buildPersistence(c.Context, ch, startTime, logger)
		if err != nil {
			if notifier != nil {
				_ = notifier.Close()
			}
			return setupExit("%v", err)
		}

		var table *runtime.ResultTable
		if !c.Bool("quiet") {
			table = runtime.NewResultTable(evalStdout, !c.Bool("no-color") && render.IsTTY(os.Stdout))
		}

		orchestrator, err := runtime.NewBatchOrchestrator(&runtime.BatchConfig{
			Meta:      &ch.meta,
			Samples:   samples,
			Count:     ch.count,
			Extractor: extractor,
			Session:   ch.session,
			Connector: connectSession,
			Seed:      ch.seed,
			Pace:      ch.pace,
			Policy:    persist.policy,
			Collector: persist.collector,
			Table:     table,
			OnSample:  progressReporter(c.Bool("progress"), suite),
			Logger:    logger,
		})
		if err != nil {
			persist.finish(nil, logger)
			return setupExit("failed to create orchestrator: %v", err)
		}

		// Set up context with signal handling
		ctx, cancel := context.WithCancel(c.Context)
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()

		result, runErr := orchestrator.Execute(ctx)
		persist.finish(result, logger)

		if path := c.String("report"); path != "" {
			report := runtime.BuildBatchRunReport(ch.meta, result, runErr, persist.collector.Snapshot(), persist.name)
			if err := runtime.WriteRunReport(report, path); err != nil {
				logger.Warn("writing batch report failed", map[string]any{"error": err.Error()})
			}
		}

		if notifier != nil {
			storagePath := ""
			if ch.storage.enabled() {
				storagePath = ch.storage.path
			}
			ev := batchEvent(ch.meta, lode.DeriveDay(startTime), storagePath, result, runErr, time.Now())
			notify(context.WithoutCancel(ctx), notifier, ev, logger)
		}

		code := runtime.DetermineExitCode(result, runErr)
		_, message := runtime.OutcomeFor(code, result, runErr)
		if code == exitScored {
			return nil
		}
		return cli.Exit(message, code)
	}
}

// progressReporter returns nil unless a bar was requested and stderr is a
// terminal. The bar is created on the first sample, once the total is known.
func progressReporter(enabled bool, suite string) func(done, total int) {
	if !enabled || !render.IsTTY(os.Stderr) {
		return nil
	}
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(suite),
				progressbar.OptionSetWidth(30),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}
}
