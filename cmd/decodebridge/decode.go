package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/decodebridge/pkg/adapters/annexbsource"
	"github.com/user/decodebridge/pkg/adapters/ivfsource"
	"github.com/user/decodebridge/pkg/adapters/libde265"
	"github.com/user/decodebridge/pkg/adapters/libvpx"
	"github.com/user/decodebridge/pkg/adapters/mp4source"
	"github.com/user/decodebridge/pkg/adapters/nullsink"
	"github.com/user/decodebridge/pkg/adapters/osfilesystem"
	"github.com/user/decodebridge/pkg/adapters/prefetch"
	"github.com/user/decodebridge/pkg/adapters/rawsink"
	"github.com/user/decodebridge/pkg/adapters/rtpsource"
	"github.com/user/decodebridge/pkg/adapters/snapshotsink"
	"github.com/user/decodebridge/pkg/adapters/softengine"
	"github.com/user/decodebridge/pkg/config"
	"github.com/user/decodebridge/pkg/decoder"
	"github.com/user/decodebridge/pkg/orchestrator"
	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

func decodeCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    l10n.T("YAML configuration file"),
			Category: l10n.T(categoryInput),
		},
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    l10n.T("Input file, or - for standard input"),
			Category: l10n.T(categoryInput),
		},
		&cli.StringFlag{
			Name:     "format",
			Aliases:  []string{"f"},
			Usage:    l10n.T("Input format (annexb, mp4, rtp, ivf)"),
			Category: l10n.T(categoryInput),
		},
		&cli.IntFlag{
			Name:     "chunk-size",
			Usage:    l10n.T("Bytes per chunk read from annexb input"),
			Category: l10n.T(categoryInput),
		},
		&cli.StringFlag{
			Name:     "mode",
			Aliases:  []string{"m"},
			Usage:    l10n.T("Input framing (packetized, raw); defaults to the input format's framing"),
			Category: l10n.T(categoryDecode),
		},
		&cli.StringFlag{
			Name:     "engine",
			Aliases:  []string{"e"},
			Usage:    l10n.T("Decode engine (libde265, soft, vp8)"),
			Category: l10n.T(categoryDecode),
		},
		&cli.StringFlag{
			Name:     "framerate",
			Aliases:  []string{"r"},
			Usage:    l10n.T("Output frame rate override as N/D (0/1 keeps the input rate)"),
			Category: l10n.T(categoryDecode),
		},
		&cli.IntFlag{
			Name:     "threads",
			Aliases:  []string{"t"},
			Usage:    l10n.T("Decoder worker threads (0 = number of CPUs)"),
			Category: l10n.T(categoryDecode),
		},
		&cli.IntFlag{
			Name:     "queue-capacity",
			Usage:    l10n.T("Picture queue capacity of the soft engine"),
			Category: l10n.T(categoryDecode),
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Raw I420 output file (frames are discarded when empty)"),
			Category: l10n.T(categoryOutput),
		},
		&cli.StringFlag{
			Name:     "snapshots",
			Usage:    l10n.T("Directory for BMP snapshots"),
			Category: l10n.T(categoryOutput),
		},
		&cli.IntFlag{
			Name:     "snapshot-every",
			Usage:    l10n.T("Save a snapshot every N frames"),
			Category: l10n.T(categoryOutput),
		},
		&cli.StringFlag{
			Name:     "summary",
			Usage:    l10n.T("Output execution summary to file (Markdown format)"),
			Category: l10n.T(categoryOutput),
		},
	}

	return &cli.Command{
		Name:      "decode",
		Usage:     l10n.T("Decode a compressed stream"),
		ArgsUsage: "[input]",
		Flags:     append(flags, loggingFlags()...),
		Action:    runDecode,
	}
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(c *cli.Context, cfg *config.Config) {
	strs := map[string]*string{
		"input":     &cfg.Input,
		"format":    &cfg.InputFormat,
		"mode":      &cfg.Mode,
		"engine":    &cfg.Engine,
		"framerate": &cfg.FrameRate,
		"output":    &cfg.Output,
		"snapshots": &cfg.Snapshot.Dir,
		"summary":   &cfg.Summary,
		"log-level": &cfg.LogLevel,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}

	ints := map[string]*int{
		"chunk-size":     &cfg.ChunkSize,
		"threads":        &cfg.Threads,
		"queue-capacity": &cfg.Soft.QueueCapacity,
		"snapshot-every": &cfg.Snapshot.Every,
	}
	for name, dst := range ints {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	if cfg.Input == "" && c.Args().Present() {
		cfg.Input = c.Args().First()
	}
}

func runDecode(c *cli.Context) error {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	applyFlags(c, &cfg)

	if cfg.Input == "" {
		return errors.New(l10n.T("an input file is required"))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(c, cfg)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := osfilesystem.New()
	if cfg.Input != "-" {
		exists, err := fs.Exists(cfg.Input)
		if err != nil {
			return err
		}
		if !exists {
			return errors.New(l10n.F("input file %s does not exist", cfg.Input))
		}
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	source, inputRate, err := openSource(fs, cfg, log)
	if err != nil {
		return err
	}
	framing := cfg.Framing(source.Framing())
	rate := cfg.Rate()
	if !rate.IsSet() && inputRate.IsSet() {
		rate = inputRate
	}

	downstream, raw, err := newDownstream(fs, cfg, log)
	if err != nil {
		source.Close()
		return err
	}

	adapter := decoder.New(engine, log, decoder.WithThreads(cfg.Threads))
	orch := orchestrator.New(adapter, withPrefetch(ctx, cfg, source), downstream, fs, log)

	result, err := orch.Run(ctx, orchestrator.Config{
		Framing:     framing,
		FrameRate:   rate,
		Input:       cfg.Input,
		InputFormat: cfg.InputFormat,
		Output:      cfg.Output,
		SummaryPath: cfg.Summary,
	})
	if ctx.Err() != nil {
		log.Warn("Interrupted, shutting down...")
	}
	reportLoss(source, log)
	if err != nil {
		return err
	}

	if raw != nil {
		for _, seg := range raw.Segments() {
			if seg.Frames > 0 {
				log.Info("Wrote %d frames (%s) to %s", seg.Frames, seg.Geometry.String(), seg.Path)
			}
		}
	}
	if result.Stats.Frames == 0 {
		log.Warn("No frames were decoded")
	}
	return nil
}

// withPrefetch reads file inputs ahead of the decoder. Standard input is
// left unwrapped: a read blocked on a terminal ignores cancellation, so the
// reader goroutine would keep Close waiting after an interrupt.
func withPrefetch(ctx context.Context, cfg config.Config, source ports.ChunkSource) ports.ChunkSource {
	if cfg.Input == "-" {
		return source
	}
	return prefetch.New(ctx, source, 0)
}

// reportLoss logs the RTP packets missing over the whole run.
func reportLoss(source ports.ChunkSource, log ports.Logger) {
	if rtp, ok := source.(*rtpsource.Source); ok && rtp.Lost() > 0 {
		log.Warn("%d RTP packets were lost in total", rtp.Lost())
	}
}

func newEngine(cfg config.Config) (ports.Engine, error) {
	switch cfg.Engine {
	case config.EngineSoft:
		return softengine.New(softengine.WithQueueCapacity(cfg.Soft.QueueCapacity)), nil
	case config.EngineVP8:
		engine, err := libvpx.New()
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, libvpx.LibPathEnv)
		}
		return engine, nil
	default:
		engine, err := libde265.New()
		if err != nil {
			return nil, fmt.Errorf("%w (set %s or use --engine soft)", err, libde265.LibPathEnv)
		}
		return engine, nil
	}
}

// openSource opens the input and returns the frame rate it declares, if any.
func openSource(fs ports.FileSystem, cfg config.Config, log ports.Logger) (ports.ChunkSource, pipeline.Fraction, error) {
	var none pipeline.Fraction

	switch cfg.InputFormat {
	case config.InputMP4:
		src, err := mp4source.Open(fs, cfg.Input)
		if err != nil {
			return nil, none, err
		}
		log.Info("Opened %s track with %d samples", string(src.Codec()), src.Samples())
		return src, src.FrameRate(), nil
	case config.InputRTP:
		src, err := rtpsource.Open(fs, cfg.Input, log)
		if err != nil {
			return nil, none, err
		}
		return src, none, nil
	case config.InputIVF:
		src, err := ivfsource.Open(fs, cfg.Input)
		if err != nil {
			return nil, none, err
		}
		h := src.Header()
		log.Info("Opened %s stream %dx%d with %d frames", h.FourCC, h.Width, h.Height, src.Frames())
		return src, src.FrameRate(), nil
	default:
		var src *annexbsource.Source
		if cfg.Input == "-" {
			src = annexbsource.New(os.Stdin, cfg.ChunkSize)
		} else {
			var err error
			if src, err = annexbsource.Open(fs, cfg.Input, cfg.ChunkSize); err != nil {
				return nil, none, err
			}
		}
		if cfg.Mode != "" {
			src.WithFraming(cfg.Framing(pipeline.FramingRaw))
		}
		return src, none, nil
	}
}

// newDownstream builds the output chain. The raw sink is returned separately
// for reporting and is nil when frames are discarded.
func newDownstream(fs ports.FileSystem, cfg config.Config, log ports.Logger) (ports.Downstream, *rawsink.Sink, error) {
	var (
		downstream ports.Downstream
		raw        *rawsink.Sink
	)
	if cfg.Output != "" {
		raw = rawsink.New(cfg.Output, fs)
		downstream = raw
	} else {
		downstream = nullsink.New()
	}

	if cfg.Snapshot.Dir != "" {
		if err := fs.MkdirAll(cfg.Snapshot.Dir); err != nil {
			return nil, nil, fmt.Errorf("create snapshot directory: %w", err)
		}
		downstream = snapshotsink.New(downstream, fs, snapshotsink.Options{
			Dir:      cfg.Snapshot.Dir,
			Every:    cfg.Snapshot.Every,
			MaxWidth: cfg.Snapshot.MaxWidth,
			Label:    cfg.Snapshot.Label,
		}, log)
	}
	return downstream, raw, nil
}
