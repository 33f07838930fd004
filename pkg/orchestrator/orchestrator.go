// Package orchestrator runs one decode session: it pulls chunks from a
// source, drives the decode loop controller and reports the outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/decodebridge/pkg/controller"
	"github.com/user/decodebridge/pkg/decoder"
	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
	"github.com/user/decodebridge/pkg/stages/reframe"
	"github.com/user/decodebridge/pkg/summarizer"
)

// Config contains the per-session settings.
type Config struct {
	Framing   pipeline.FramingMode
	FrameRate pipeline.Fraction

	// Descriptive fields, only used in the summary.
	Input       string
	InputFormat string
	Output      string

	// SummaryPath enables the markdown session summary.
	SummaryPath string
}

// RunResult is the outcome of a session.
type RunResult struct {
	StreamID string
	Stats    controller.Stats
	Geometry pipeline.Geometry
	Duration time.Duration

	// Err is the error that ended the session, if any. It is also returned
	// by Run.
	Err error
}

// Orchestrator wires a source, a decoder and a downstream together.
type Orchestrator struct {
	adapter    *decoder.Adapter
	source     ports.ChunkSource
	downstream ports.Downstream
	fs         ports.FileSystem
	logger     ports.Logger
}

// New creates a new Orchestrator. Run takes ownership of source and
// downstream and closes both.
func New(
	adapter *decoder.Adapter,
	source ports.ChunkSource,
	downstream ports.Downstream,
	fs ports.FileSystem,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		adapter:    adapter,
		source:     source,
		downstream: downstream,
		fs:         fs,
		logger:     logger,
	}
}

// Run decodes the whole source. Malformed chunks are skipped, a
// discontinuity flushes the decoder, and end of input drains every
// remaining picture. The decoder context is always released.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (RunResult, error) {
	ctrl := controller.New(o.adapter, o.downstream, controller.Options{
		Framing:   cfg.Framing,
		FrameRate: cfg.FrameRate,
	}, o.logger)

	started := time.Now()
	result := RunResult{StreamID: ctrl.ID()}

	if err := ctrl.Start(); err != nil {
		o.closeAll()
		result.Err = fmt.Errorf("start stream: %w", err)
		return result, result.Err
	}

	runErr := o.loop(ctx, ctrl)
	ctrl.Stop()
	if err := o.closeAll(); err != nil && runErr == nil {
		runErr = err
	}

	result.Stats = ctrl.Stats()
	result.Geometry = ctrl.Geometry()
	result.Duration = time.Since(started)
	result.Err = runErr

	if runErr == nil {
		o.logger.Info("Decoded %d frames in %d ms", result.Stats.Frames, result.Duration.Milliseconds())
	}
	if cfg.SummaryPath != "" {
		o.writeSummary(cfg, result)
	}
	return result, runErr
}

func (o *Orchestrator) loop(ctx context.Context, ctrl *controller.Controller) error {
	for {
		chunk, err := o.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			_, err := ctrl.Drain(ctx)
			return err
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		if chunk.Discontinuity {
			if err := ctrl.Flush(); err != nil {
				return err
			}
		}

		if _, err := ctrl.HandleChunk(ctx, chunk.Data); err != nil {
			if errors.Is(err, reframe.ErrFramingOverflow) {
				continue
			}
			return err
		}
	}
}

func (o *Orchestrator) closeAll() error {
	srcErr := o.source.Close()
	if err := o.downstream.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if srcErr != nil {
		return fmt.Errorf("close input: %w", srcErr)
	}
	return nil
}

// snapshotter is implemented by downstreams that save thumbnails.
type snapshotter interface {
	Written() []string
}

func (o *Orchestrator) writeSummary(cfg Config, result RunResult) {
	output := summarizer.OutputInfo{Path: cfg.Output}
	if g := result.Geometry; g.Width > 0 && g.Height > 0 {
		output.Width = g.Width
		output.Height = g.Height
		output.Format = string(g.Format)
	}
	if cfg.FrameRate.IsSet() {
		output.FrameRate = cfg.FrameRate.String()
	}
	if s, ok := o.downstream.(snapshotter); ok {
		output.Snapshots = len(s.Written())
	}

	st := result.Stats
	summary := summarizer.NewBuilder().
		WithStream(summarizer.StreamInfo{
			ID:          result.StreamID,
			Input:       cfg.Input,
			InputFormat: cfg.InputFormat,
			Framing:     cfg.Framing.String(),
			Engine:      o.adapter.Engine(),
			Threads:     o.adapter.Threads(),
		}).
		WithOutput(output).
		WithCounters(summarizer.Counters{
			Chunks:         st.Chunks,
			BytesIn:        int64(st.BytesIn),
			BytesFed:       int64(st.BytesFed),
			Frames:         st.Frames,
			Renegotiations: st.Renegotiations,
			Warnings:       st.Warnings,
			FramingErrors:  st.FramingErrors,
			BacklogEvents:  st.BacklogEvents,
			Flushes:        st.Flushes,
			Discarded:      st.Discarded,
		}).
		WithDuration(result.Duration).
		WithError(result.Err).
		Build()

	w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), o.fs)
	if err := w.Write(cfg.SummaryPath, summary); err != nil {
		o.logger.Warn("Failed to write summary: %s", err.Error())
		return
	}
	o.logger.Info("Summary written to %s", cfg.SummaryPath)
}
