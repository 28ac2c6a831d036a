package cmd

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchlink/cli/render"
	"github.com/pithecene-io/benchlink/dataset"
	"github.com/pithecene-io/benchlink/imaging"
	"github.com/pithecene-io/benchlink/link"
	"github.com/pithecene-io/benchlink/iox"
	"github.com/pithecene-io/benchlink/lode"
	"github.com/pithecene-io/benchlink/log"
	"github.com/pithecene-io/benchlink/metrics"
	"github.com/pithecene-io/benchlink/runtime"
	"github.com/pithecene-io/benchlink/types"
)

// TransferItem is one row of the transfer summary.
type TransferItem struct {
	Mode  string `json:"mode"`
	Input string `json:"input"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// TransferCommand returns the transfer command.
func TransferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Send an image through the device's image transforms",
		Flags: append([]cli.Flag{
			ConfigFlag,
			FormatFlag,
			NoColorFlag,
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "Serial port, or loop:// for the emulator"},
			&cli.IntFlag{Name: "baud", Usage: "Serial baud rate"},
			&cli.DurationFlag{Name: "timeout", Usage: "Response timeout"},
			&cli.DurationFlag{Name: "settle", Usage: "Pause between header and payload"},
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Usage: "Input image (png, jpeg, gif, bmp)"},
			&cli.StringFlag{Name: "mnist-images", Usage: "Take the input from an MNIST IDX file instead"},
			&cli.IntFlag{Name: "index", Usage: "Image index within --mnist-images"},
			&cli.StringSliceFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Mode to apply (repeatable, default: all)"},
			&cli.BoolFlag{Name: "chain", Usage: "Binarize, then dilate and erode the binary result"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Directory for output png files"},
			&cli.StringFlag{Name: "run-id", Usage: "Run ID for stored outputs (default: random UUID)"},
		}, StorageFlags()...),
		Action: transferAction,
	}
}

// transferInput loads the source image. MNIST digits are binary-ish, so they
// are resized with nearest-neighbour.
func transferInput(c *cli.Context) (image.Image, bool, error) {
	path := c.String("image")
	idx := c.String("mnist-images")
	switch {
	case path != "" && idx != "":
		return nil, false, errors.New("--image and --mnist-images are mutually exclusive")
	case path != "":
		img, err := imaging.Load(path)
		return img, false, err
	case idx != "":
		set, err := dataset.LoadImages(idx)
		if err != nil {
			return nil, false, err
		}
		i := c.Int("index")
		if i < 0 || i >= set.Count {
			return nil, false, fmt.Errorf("--index %d out of range [0, %d)", i, set.Count)
		}
		img, err := imaging.FromMNIST(set.Image(i))
		return img, true, err
	default:
		return nil, false, errors.New("--image or --mnist-images is required")
	}
}

func transferModes(c *cli.Context) ([]types.Mode, error) {
	names := c.StringSlice("mode")
	if len(names) == 0 {
		return types.KnownModes, nil
	}
	modes := make([]types.Mode, 0, len(names))
	for _, n := range names {
		m, err := types.ParseMode(n)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

func transferAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return setupExit("invalid config: %v", err)
	}
	port := resolveString(c, "port", cfg.Serial.Port)
	if port == "" {
		return setupExit("--port is required (or serial.port in --config)")
	}
	modes, err := transferModes(c)
	if err != nil {
		return setupExit("%v", err)
	}
	if c.Bool("chain") && c.IsSet("mode") {
		return setupExit("--chain and --mode are mutually exclusive")
	}
	img, nearest, err := transferInput(c)
	if err != nil {
		return setupExit("failed to load input: %v", err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return setupExit("%v", err)
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}
	meta := types.BatchMeta{RunID: runID, Suite: types.SuiteTransform}
	logger := log.NewLogger(&meta).WithOutput(evalStderr)
	defer iox.DiscardErr(logger.Sync)

	storage := resolveStorage(c, cfg)
	backend := "none"
	if storage.enabled() {
		backend = storage.backend
	}
	collector := metrics.NewCollector(types.SuiteTransform, "none", backend, runID)

	runner := &runtime.TransformRunner{
		Transport: link.NewTransferer(link.NewOpener(port, resolveInt(c, "baud", cfg.Serial.BaudRate)), link.Config{
			SettleDelay: resolveDuration(c, "settle", cfg.Serial.SettleDelay.Duration),
			Timeout:     resolveDuration(c, "timeout", cfg.Serial.Timeout.Duration),
			Logger:      logger,
			Collector:   collector,
		}),
		Logger:  logger,
		Nearest: nearest,
	}

	var client *lode.LodeClient
	if storage.enabled() {
		if err := storage.validate(); err != nil {
			return setupExit("%v", err)
		}
		client, err = newLodeClient(c.Context, storage, lode.Config{
			Suite:   types.SuiteTransform,
			Day:     lode.DeriveDay(time.Now()),
			RunID:   runID,
			Attempt: 1,
		})
		if err != nil {
			return setupExit("failed to create Lode client: %v", err)
		}
		runner.Files = client
	}

	var outputs []runtime.TransformOutput
	var runErr error
	if c.Bool("chain") {
		outputs, runErr = runner.Chain(c.Context, img)
	} else {
		outputs, runErr = runner.Run(c.Context, img, modes)
	}

	items, saveErr := saveOutputs(outputs, c.String("out"))
	if client != nil {
		if err := client.WriteMetrics(c.Context, collector.Snapshot(), time.Now()); err != nil {
			logger.Warn("writing metrics record failed", map[string]any{"error": err.Error()})
		}
	}
	if err := r.Render(items); err != nil {
		return err
	}

	if err := errors.Join(runErr, saveErr); err != nil {
		return cli.Exit(fmt.Sprintf("transfer failed: %v", err), 1)
	}
	return nil
}

// saveOutputs writes successful outputs under dir, when set, and builds the
// summary rows.
func saveOutputs(outputs []runtime.TransformOutput, dir string) ([]TransferItem, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	items := make([]TransferItem, 0, len(outputs))
	var errs []error
	for _, out := range outputs {
		item := TransferItem{Mode: out.Mode.String(), Input: out.Input}
		switch {
		case out.Err != nil:
			item.Error = out.Err.Error()
		case dir != "":
			path := filepath.Join(dir, out.Filename())
			if err := imaging.Save(path, out.Image); err != nil {
				item.Error = err.Error()
				errs = append(errs, err)
			} else {
				item.File = path
			}
		}
		items = append(items, item)
	}
	return items, errors.Join(errs...)
}
