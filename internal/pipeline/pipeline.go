// Package pipeline runs one split: read the dump, apply rewrites, evaluate
// the plan and write every segment to the output directory.
//
// Runs are sequential. A missing marker or an implausible span skips only the
// affected segment; any I/O failure aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/sqlsplit/internal/plan"
	"github.com/leapstack-labs/sqlsplit/internal/rewrite"
	"github.com/leapstack-labs/sqlsplit/internal/sink"
	"github.com/leapstack-labs/sqlsplit/internal/source"
	"github.com/leapstack-labs/sqlsplit/pkg/segment"
)

// Options configures a run.
type Options struct {
	Source    string
	Encoding  string
	OutputDir string
	Plan      *plan.Plan

	// DryRun evaluates the plan without touching the output directory.
	DryRun bool
	// Clean removes stale *.sql files from OutputDir first. Source is never
	// removed, even when it lives in OutputDir.
	Clean bool
	// WriteBack saves the rewritten dump over Source when a rewrite matched.
	WriteBack bool

	Logger *slog.Logger
}

// FileReport describes one written (or, in a dry run, planned) file.
type FileReport struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Label string `json:"label"`
	Part  int    `json:"part,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Lines int    `json:"lines"`
	Bytes int    `json:"bytes"`
}

// SkipReport describes a segment that produced no file.
type SkipReport struct {
	Label  string `json:"label"`
	Code   Code   `json:"code"`
	Reason string `json:"reason"`
}

// RewriteReport is the match count of one rewrite rule.
type RewriteReport struct {
	Rule    string `json:"rule"`
	Matches int    `json:"matches"`
}

// Report summarises a run.
type Report struct {
	RunID       string          `json:"run_id"`
	Source      string          `json:"source"`
	SourceLines int             `json:"source_lines"`
	OutputDir   string          `json:"output_dir"`
	DryRun      bool            `json:"dry_run"`
	Files       []FileReport    `json:"files"`
	Skipped     []SkipReport    `json:"skipped"`
	Rewrites    []RewriteReport `json:"rewrites,omitempty"`
	Duration    time.Duration   `json:"duration_ns"`
}

// Run executes the pipeline.
func Run(ctx context.Context, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Plan == nil {
		return nil, plan.ErrEmptyPlan
	}

	started := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		Source:    opts.Source,
		OutputDir: opts.OutputDir,
		DryRun:    opts.DryRun,
		Files:     []FileReport{},
		Skipped:   []SkipReport{},
	}
	logger = logger.With("run_id", report.RunID)

	specs, err := opts.Plan.Specs()
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	rw, err := rewrite.Compile(opts.Plan.Rewrites)
	if err != nil {
		return nil, err
	}

	doc, err := source.Read(opts.Source, opts.Encoding)
	if err != nil {
		return nil, err
	}
	report.SourceLines = doc.Lines()
	logger.Info("source loaded", "path", doc.Path, "encoding", doc.Encoding, "lines", report.SourceLines)

	text := doc.Text
	if rw.Len() > 0 {
		var counts []rewrite.Count
		var changed int
		text, counts = rw.Apply(text)
		for _, c := range counts {
			report.Rewrites = append(report.Rewrites, RewriteReport{Rule: c.Rule, Matches: c.Matches})
			changed += c.Matches
			logger.Info("rewrite applied", "rule", c.Rule, "matches", c.Matches)
		}
		if opts.WriteBack && changed > 0 && !opts.DryRun {
			if err := source.WriteBack(opts.Source, text, opts.Encoding); err != nil {
				return nil, err
			}
			logger.Info("source updated", "path", opts.Source)
		}
	}

	eng := segment.New(opts.Plan.EngineConfig(logger))
	res := eng.Run(text, specs)

	for _, s := range res.Skipped {
		code := Classify(s.Err)
		report.Skipped = append(report.Skipped, SkipReport{Label: s.Label, Code: code, Reason: s.Err.Error()})
	}

	var out *sink.Dir
	if !opts.DryRun {
		out, err = sink.New(sink.Options{Dir: opts.OutputDir, Clean: opts.Clean, Keep: []string{opts.Source}})
		if err != nil {
			return nil, err
		}
		if err := out.Prepare(); err != nil {
			return nil, err
		}
	}

	for _, seg := range res.Segments {
		fr := FileReport{
			Name:  seg.File,
			Label: seg.Label,
			Part:  seg.Part,
			Start: seg.Span.Start,
			End:   seg.Span.End,
			Lines: seg.Lines(),
			Bytes: len(seg.Text),
		}
		if out != nil {
			path, err := out.Write(ctx, seg.File, seg.Text)
			if err != nil {
				return nil, err
			}
			fr.Path = path
			logger.Info("created file", "name", seg.File, "lines", fr.Lines)
		}
		report.Files = append(report.Files, fr)
	}

	report.Duration = time.Since(started)
	logger.Info("split completed",
		"files", len(report.Files),
		"skipped", len(report.Skipped),
		"output_dir", opts.OutputDir,
		"dry_run", opts.DryRun,
		"duration", report.Duration)
	return report, nil
}

// Evaluate reads the source, applies rewrites in memory and runs the engine.
// Nothing is written: neither the output directory nor the source.
func Evaluate(opts Options) (*segment.Result, error) {
	if opts.Plan == nil {
		return nil, plan.ErrEmptyPlan
	}
	specs, err := opts.Plan.Specs()
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	rw, err := rewrite.Compile(opts.Plan.Rewrites)
	if err != nil {
		return nil, err
	}
	doc, err := source.Read(opts.Source, opts.Encoding)
	if err != nil {
		return nil, err
	}
	text, _ := rw.Apply(doc.Text)
	return segment.New(opts.Plan.EngineConfig(opts.Logger)).Run(text, specs), nil
}
