package cmd

import (
	"errors"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchlink/cli/config"
	"github.com/pithecene-io/benchlink/runtime"
	"github.com/pithecene-io/benchlink/types"
)

func hasFlag(flags []cli.Flag, name string) bool {
	for _, f := range flags {
		if f.Names()[0] == name {
			return true
		}
	}
	return false
}

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	if !hasFlag(ReadOnlyFlags(), "tui") {
		t.Error("ReadOnlyFlags should include --tui flag for explicit error handling")
	}
}

func TestTUIReadOnlyFlags_IncludesTUI(t *testing.T) {
	if !hasFlag(TUIReadOnlyFlags(), "tui") {
		t.Error("TUIReadOnlyFlags should include --tui flag")
	}
}

func TestReadFlags_IncludeConfigAndStorage(t *testing.T) {
	flags := readFlags(true)
	for _, name := range []string{"config", "storage-path", "storage-backend", "storage-dataset", "format"} {
		if !hasFlag(flags, name) {
			t.Errorf("readFlags missing --%s", name)
		}
	}
}

func TestExitCodeConstants(t *testing.T) {
	if exitScored != 0 || exitNothing != 1 || exitSetup != 2 || exitPersistence != 3 || exitCanceled != 4 {
		t.Errorf("unexpected exit codes: %d %d %d %d %d", exitScored, exitNothing, exitSetup, exitPersistence, exitCanceled)
	}
}

// --- Config precedence tests ---

// newTestCLIContext builds a minimal *cli.Context with the given flags set.
// flagValues are registered and marked as explicitly set (c.IsSet returns
// true); defaultFlags are registered with a default value only.
func newTestCLIContext(t *testing.T, flagValues map[string]string, defaultFlags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	allFlags := make(map[string]string)
	for k, v := range defaultFlags {
		allFlags[k] = v
	}
	for k, v := range flagValues {
		allFlags[k] = v
	}

	var cliFlags []cli.Flag
	for name, val := range allFlags {
		cliFlags = append(cliFlags, &cli.StringFlag{Name: name, Value: val})
	}
	app.Flags = cliFlags

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, val := range allFlags {
		fs.String(name, val, "")
	}
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestResolveString_CLIWins(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"address": "/dev/ttyACM1"}, nil)
	if got := resolveString(c, "address", "/dev/ttyACM0"); got != "/dev/ttyACM1" {
		t.Errorf("expected CLI to win, got %q", got)
	}
}

func TestResolveString_ConfigFallback(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"address": ""})
	if got := resolveString(c, "address", "/dev/ttyACM0"); got != "/dev/ttyACM0" {
		t.Errorf("expected config fallback, got %q", got)
	}
}

func TestResolveString_UrfaveDefault(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"transport": "serial"})
	if got := resolveString(c, "transport", ""); got != "serial" {
		t.Errorf("expected urfave default, got %q", got)
	}
}

func TestResolveInt_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "count"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("count", 0, "")
	_ = fs.Set("count", "5")
	c := cli.NewContext(app, fs, nil)

	if got := resolveInt(c, "count", 20); got != 5 {
		t.Errorf("expected CLI to win with 5, got %d", got)
	}
}

func TestResolveInt_ConfigFallback(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "count"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("count", 0, "")
	c := cli.NewContext(app, fs, nil)

	if got := resolveInt(c, "count", 20); got != 20 {
		t.Errorf("expected config fallback 20, got %d", got)
	}
}

func TestResolveInt64_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.Int64Flag{Name: "seed"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int64("seed", 0, "")
	_ = fs.Set("seed", "42")
	c := cli.NewContext(app, fs, nil)

	if got := resolveInt64(c, "seed", 7); got != 42 {
		t.Errorf("expected CLI to win with 42, got %d", got)
	}
}

func TestResolveBool_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.BoolFlag{Name: "storage-s3-path-style"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("storage-s3-path-style", false, "")
	_ = fs.Set("storage-s3-path-style", "true")
	c := cli.NewContext(app, fs, nil)

	if !resolveBool(c, "storage-s3-path-style", false) {
		t.Error("expected CLI true to win")
	}
}

func TestResolveDuration_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "adapter-timeout"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("adapter-timeout", 0, "")
	_ = fs.Set("adapter-timeout", "30s")
	c := cli.NewContext(app, fs, nil)

	if got := resolveDuration(c, "adapter-timeout", 10*time.Second); got != 30*time.Second {
		t.Errorf("expected CLI 30s to win, got %v", got)
	}
}

func TestResolveDuration_ConfigFallback(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "adapter-timeout"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("adapter-timeout", 0, "")
	c := cli.NewContext(app, fs, nil)

	if got := resolveDuration(c, "adapter-timeout", 10*time.Second); got != 10*time.Second {
		t.Errorf("expected config fallback 10s, got %v", got)
	}
}

func TestResolveStorage_Defaults(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{
		"storage-dataset": "", "storage-backend": "", "storage-path": "",
		"storage-region": "", "storage-endpoint": "",
	})
	cfg := config.Default()
	cfg.Storage = config.StorageConfig{}

	s := resolveStorage(c, cfg)
	if s.dataset != "benchlink" || s.backend != "fs" {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.enabled() {
		t.Error("storage without a path should be disabled")
	}
}

func TestStorageChoice_S3Config(t *testing.T) {
	s := storageChoice{backend: "s3", path: "bucket/bench/results", endpoint: "http://localhost:9000", pathStyle: true}
	got := s.s3Config()
	if got.Bucket != "bucket" || got.Prefix != "bench/results" {
		t.Errorf("unexpected bucket/prefix: %+v", got)
	}
	if !got.UsePathStyle || got.Endpoint != "http://localhost:9000" {
		t.Errorf("endpoint options not carried: %+v", got)
	}
}

func TestStorageChoice_Validate(t *testing.T) {
	if err := (storageChoice{backend: "gcs"}).validate(); err == nil || !strings.Contains(err.Error(), "must be fs or s3") {
		t.Errorf("expected actionable backend error, got %v", err)
	}
}

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name        string
		policy      string
		buffer      int
		errContains string
	}{
		{"strict", "strict", 0, ""},
		{"buffered", "buffered", 10, ""},
		{"buffered without size", "buffered", 0, "--buffer-results"},
		{"unknown", "streaming", 0, "must be strict or buffered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePolicy(tt.policy, tt.buffer)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}

func TestBuildAdapter(t *testing.T) {
	a, err := buildAdapter(adapterChoice{})
	if err != nil || a != nil {
		t.Errorf("expected no adapter, got %v, %v", a, err)
	}

	if _, err := buildAdapter(adapterChoice{kind: "webhook"}); err == nil || !strings.Contains(err.Error(), "--adapter-url") {
		t.Errorf("expected missing url error, got %v", err)
	}
	if _, err := buildAdapter(adapterChoice{kind: "kafka", url: "x"}); err == nil || !strings.Contains(err.Error(), "must be webhook or redis") {
		t.Errorf("expected unknown adapter error, got %v", err)
	}

	retries := 0
	a, err = buildAdapter(adapterChoice{kind: "webhook", url: "http://localhost/hook", retries: &retries})
	if err != nil {
		t.Fatalf("buildAdapter: %v", err)
	}
	_ = a.Close()
}

func TestBatchEvent_SetupFailure(t *testing.T) {
	meta := types.BatchMeta{RunID: "run-1", Suite: types.SuiteMNIST, Attempt: 1}
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	ev := batchEvent(meta, "2026-03-04", "", nil, errors.New("connect refused"), now)
	if ev.Outcome != runtime.OutcomeSetup || ev.ExitCode != exitSetup {
		t.Errorf("unexpected outcome %s/%d", ev.Outcome, ev.ExitCode)
	}
	if ev.Timestamp != "2026-03-04T05:06:07Z" {
		t.Errorf("unexpected timestamp %s", ev.Timestamp)
	}
	if ev.Accuracy != nil {
		t.Error("accuracy must be nil without a result")
	}
}

func TestBatchEvent_Scored(t *testing.T) {
	meta := types.BatchMeta{RunID: "run-2", Suite: types.SuiteFSDD}
	acc := 0.5
	start := time.Now()
	res := &runtime.BatchResult{
		Meta:       meta,
		Model:      "digits",
		Report:     types.BatchReport{TotalAttempted: 3, TotalScored: 2, CorrectCount: 1, Accuracy: &acc},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}

	ev := batchEvent(meta, "2026-03-04", "/data", res, nil, time.Now())
	if ev.Outcome != runtime.OutcomeScored || ev.ExitCode != exitScored {
		t.Errorf("unexpected outcome %s/%d", ev.Outcome, ev.ExitCode)
	}
	if ev.Scored != 2 || ev.Correct != 1 || ev.Attempted != 3 {
		t.Errorf("unexpected counts %+v", ev)
	}
	if ev.DurationMs != 1500 || ev.Model != "digits" || ev.StoragePath != "/data" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestDescribeFrame(t *testing.T) {
	f := describeFrame(types.ModeColorOtsu)
	if f.Header != "0x0200" {
		t.Errorf("expected header 0x0200, got %s", f.Header)
	}
	if f.Channels != 3 || f.PayloadLen != 3*128*128 || !f.Known {
		t.Errorf("unexpected frame %+v", f)
	}

	unknown := describeFrame(types.Mode(9))
	if unknown.Known || unknown.PayloadLen != 128*128 {
		t.Errorf("unexpected frame for unknown mode %+v", unknown)
	}
}

func TestSetupExit(t *testing.T) {
	err := setupExit("failed to load %s samples: %v", "mnist", "boom")
	if err.ExitCode() != exitSetup {
		t.Errorf("expected exit %d, got %d", exitSetup, err.ExitCode())
	}
	if err.Error() != "failed to load mnist samples: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
