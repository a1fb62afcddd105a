// Package pipeline composes parser, filter, merge, and writer into a
// single pass over one export file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chatpack/chatpack/internal/model"
	"github.com/chatpack/chatpack/internal/parser"
	"github.com/chatpack/chatpack/internal/writer"
)

// Config is everything one run needs. The CLI fills it from flags; there
// is no process-wide state.
type Config struct {
	Platform parser.Platform
	Input    string
	Output   string

	Format writer.Format
	Fields writer.FieldSelection

	Filter        Filter
	NoMerge       bool
	NoStreaming   bool
	IncludeSystem bool

	// Progress, when set, is called with the running message count as
	// records leave the parser.
	Progress func(done int)

	Logger *slog.Logger
}

// Stats summarizes a completed run.
type Stats struct {
	Parsed      int // messages produced by the parser
	Skipped     int // malformed records skipped
	Filtered    int // messages surviving the filter stage
	Written     int // entries written after merging
	OutputBytes int64
}

// Run executes one conversion. The output file is created only after the
// parser has validated the input's file-level structure, so a file that
// never parses cannot leave a truncated sink behind.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger

	in, err := os.Open(cfg.Input)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	stream, err := parser.Open(cfg.Platform, in, parser.Options{IncludeSystem: cfg.IncludeSystem})
	if err != nil {
		return Stats{}, err
	}

	out, err := os.Create(cfg.Output)
	if err != nil {
		return Stats{}, fmt.Errorf("create output: %w", err)
	}

	w := writer.New(cfg.Format, out, cfg.Fields)

	var stats Stats
	if cfg.NoStreaming {
		err = runMaterialized(ctx, stream, w, cfg, &stats)
	} else {
		err = runStreaming(ctx, stream, w, cfg, &stats)
	}
	if err != nil {
		out.Close()
		return stats, err
	}

	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("close output: %w", err)
	}
	if info, err := os.Stat(cfg.Output); err == nil {
		stats.OutputBytes = info.Size()
	}

	logger.Debug("run complete",
		"parsed", stats.Parsed,
		"skipped", stats.Skipped,
		"filtered", stats.Filtered,
		"written", stats.Written,
	)
	return stats, nil
}

// runStreaming pulls one message at a time; the resident working set is
// bounded by the current merge run plus one in-flight record.
func runStreaming(ctx context.Context, stream parser.Stream, w writer.Writer, cfg Config, stats *Stats) error {
	var m merger

	emit := func(msg *model.Message) error {
		if msg == nil {
			return nil
		}
		stats.Written++
		if err := w.Write(*msg); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var rerr *parser.RecordError
			if errors.As(err, &rerr) {
				stats.Skipped++
				cfg.Logger.Debug("skipping record", "error", rerr)
				continue
			}
			return err
		}

		stats.Parsed++
		if cfg.Progress != nil {
			cfg.Progress(stats.Parsed)
		}

		if !cfg.Filter.Match(msg) {
			continue
		}
		stats.Filtered++

		if cfg.NoMerge {
			if err := emit(&msg); err != nil {
				return err
			}
			continue
		}
		if err := emit(m.Push(msg)); err != nil {
			return err
		}
	}

	if !cfg.NoMerge {
		if err := emit(m.Flush()); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// runMaterialized trades the memory bound for a full in-memory pass:
// parse everything, filter, merge, then write. The logical output is
// byte-identical to the streaming path.
func runMaterialized(ctx context.Context, stream parser.Stream, w writer.Writer, cfg Config, stats *Stats) error {
	msgs, skipped, err := parser.Collect(stream)
	if err != nil {
		return err
	}
	stats.Parsed = len(msgs)
	stats.Skipped = skipped
	if cfg.Progress != nil && len(msgs) > 0 {
		cfg.Progress(len(msgs))
	}

	msgs = cfg.Filter.Apply(msgs)
	stats.Filtered = len(msgs)

	if !cfg.NoMerge {
		msgs = Merge(msgs)
	}

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Written++
		if err := w.Write(msg); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
