package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/benchlink/features"
)

// Config represents a benchlink.yaml configuration file.
// Every value acts as a default for command flags; flags always override.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Session  SessionConfig  `yaml:"session"`
	Features FeaturesConfig `yaml:"features"`
	Batch    BatchConfig    `yaml:"batch"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Storage  StorageConfig  `yaml:"storage"`
	Policy   PolicyConfig   `yaml:"policy"`
	Adapter  AdapterConfig  `yaml:"adapter"`
}

// SerialConfig configures the image transfer link.
type SerialConfig struct {
	Port        string   `yaml:"port"`
	BaudRate    int      `yaml:"baud_rate"`
	Timeout     Duration `yaml:"timeout"`
	SettleDelay Duration `yaml:"settle_delay"`
}

// SessionConfig configures the inference session.
type SessionConfig struct {
	Transport string   `yaml:"transport"`
	Address   string   `yaml:"address"`
	BaudRate  int      `yaml:"baud_rate"`
	Timeout   Duration `yaml:"timeout"`
}

// FeaturesConfig mirrors features.Config with file-friendly names.
type FeaturesConfig struct {
	FFTSize         int     `yaml:"fft_size"`
	SampleRate      int     `yaml:"sample_rate"`
	MelFilters      int     `yaml:"mel_filters"`
	DCTOutputs      int     `yaml:"dct_outputs"`
	FreqMin         float64 `yaml:"freq_min"`
	BinarizeMoments bool    `yaml:"binarize_moments"`
}

// BatchConfig holds evaluation batch defaults.
type BatchConfig struct {
	Size int   `yaml:"size"`
	Seed int64 `yaml:"seed"`
}

// DatasetConfig locates the evaluation data.
type DatasetConfig struct {
	MNISTImages   string `yaml:"mnist_images"`
	MNISTLabels   string `yaml:"mnist_labels"`
	RecordingsDir string `yaml:"recordings_dir"`
}

// StorageConfig holds result storage defaults.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig selects the persistence policy.
type PolicyConfig struct {
	Name          string `yaml:"name"`
	BufferResults int    `yaml:"buffer_results"`
}

// AdapterConfig configures batch completion notifications.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "100ms").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration back in string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	fc := features.DefaultConfig()
	return &Config{
		Serial: SerialConfig{
			BaudRate:    115200,
			Timeout:     Duration{10 * time.Second},
			SettleDelay: Duration{100 * time.Millisecond},
		},
		Session: SessionConfig{
			Transport: "serial",
			BaudRate:  115200,
			Timeout:   Duration{5 * time.Second},
		},
		Features: FeaturesConfig{
			FFTSize:         fc.FFTSize,
			SampleRate:      fc.SampleRate,
			MelFilters:      fc.NumMelFilters,
			DCTOutputs:      fc.NumDCTOutputs,
			FreqMin:         fc.FreqMin,
			BinarizeMoments: fc.BinarizeMoments,
		},
		Batch:   BatchConfig{Size: 20},
		Storage: StorageConfig{Dataset: "benchlink", Backend: "fs"},
		Policy:  PolicyConfig{Name: "strict", BufferResults: 50},
	}
}

// ExtractorConfig converts the features section into the extractor config shared
// by every extractor in the process.
func (c *Config) ExtractorConfig() features.Config {
	return features.Config{
		FFTSize:         c.Features.FFTSize,
		SampleRate:      c.Features.SampleRate,
		NumMelFilters:   c.Features.MelFilters,
		NumDCTOutputs:   c.Features.DCTOutputs,
		FreqMin:         c.Features.FreqMin,
		BinarizeMoments: c.Features.BinarizeMoments,
	}
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud_rate must be > 0, got %d", c.Serial.BaudRate))
	}
	if c.Serial.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("serial.timeout must be > 0"))
	}
	if c.Serial.SettleDelay.Duration < 0 {
		errs = append(errs, errors.New("serial.settle_delay must be >= 0"))
	}
	switch c.Session.Transport {
	case "serial", "tcp":
	default:
		errs = append(errs, fmt.Errorf("session.transport must be serial or tcp, got %q", c.Session.Transport))
	}
	if c.Batch.Size <= 0 {
		errs = append(errs, fmt.Errorf("batch.size must be > 0, got %d", c.Batch.Size))
	}
	switch c.Storage.Backend {
	case "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be fs or s3, got %q", c.Storage.Backend))
	}
	switch c.Policy.Name {
	case "strict":
	case "buffered":
		if c.Policy.BufferResults <= 0 {
			errs = append(errs, fmt.Errorf("policy.buffer_results must be > 0, got %d", c.Policy.BufferResults))
		}
	default:
		errs = append(errs, fmt.Errorf("policy.name must be strict or buffered, got %q", c.Policy.Name))
	}
	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for %s", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if err := c.ExtractorConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("features: %w", err))
	}
	return errors.Join(errs...)
}
