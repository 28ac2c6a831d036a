package cmd

import (
	"context"
	"fmt"
	"time"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchlink/cli/config"
	"github.com/pithecene-io/benchlink/cli/reader"
	"github.com/pithecene-io/benchlink/lode"
)

// readTimeout bounds a read command's storage queries.
const readTimeout = 30 * time.Second

// storageChoice is the resolved storage section.
type storageChoice struct {
	dataset   string
	backend   string
	path      string
	region    string
	endpoint  string
	pathStyle bool
}

func resolveStorage(c *cli.Context, cfg *config.Config) storageChoice {
	s := storageChoice{
		dataset:   resolveString(c, "storage-dataset", cfg.Storage.Dataset),
		backend:   resolveString(c, "storage-backend", cfg.Storage.Backend),
		path:      resolveString(c, "storage-path", cfg.Storage.Path),
		region:    resolveString(c, "storage-region", cfg.Storage.Region),
		endpoint:  resolveString(c, "storage-endpoint", cfg.Storage.Endpoint),
		pathStyle: resolveBool(c, "storage-s3-path-style", cfg.Storage.S3PathStyle),
	}
	if s.dataset == "" {
		s.dataset = lode.DefaultDataset
	}
	if s.backend == "" {
		s.backend = "fs"
	}
	return s
}

// enabled reports whether results should be persisted at all.
func (s storageChoice) enabled() bool {
	return s.path != ""
}

func (s storageChoice) validate() error {
	switch s.backend {
	case "fs", "s3":
		return nil
	default:
		return fmt.Errorf("unsupported storage backend %q (must be fs or s3)", s.backend)
	}
}

func (s storageChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(s.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       s.region,
		Endpoint:     s.endpoint,
		UsePathStyle: s.pathStyle,
	}
}

// newLodeClient opens the write side for one batch.
func newLodeClient(ctx context.Context, s storageChoice, cfg lode.Config) (*lode.LodeClient, error) {
	cfg.Dataset = s.dataset
	switch s.backend {
	case "fs":
		return lode.NewLodeClient(cfg, s.path)
	case "s3":
		return lode.NewLodeS3Client(ctx, cfg, s.s3Config())
	default:
		return nil, s.validate()
	}
}

// buildReadDataset opens the read side of the dataset.
func buildReadDataset(ctx context.Context, s storageChoice) (lodelibrary.Dataset, error) {
	switch s.backend {
	case "fs":
		return lode.NewReadDatasetFS(s.dataset, s.path)
	case "s3":
		return lode.NewReadDatasetS3(ctx, s.dataset, s.s3Config())
	default:
		return nil, s.validate()
	}
}

// openReader resolves storage flags and opens a Reader. Tests replace it.
var openReader = func(c *cli.Context) (reader.Reader, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	s := resolveStorage(c, cfg)
	if !s.enabled() {
		return nil, fmt.Errorf("--storage-path is required (or storage.path in --config)")
	}
	ds, err := buildReadDataset(c.Context, s)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage reader: %w", err)
	}
	return reader.NewLodeReader(ds), nil
}

func readContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, readTimeout)
}
