package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/sqlsplit/internal/cli/output"
	"github.com/leapstack-labs/sqlsplit/internal/pipeline"
	"github.com/leapstack-labs/sqlsplit/internal/plan"
	"github.com/leapstack-labs/sqlsplit/pkg/segment"
)

// renderReport prints the outcome of a split in the renderer's mode.
func renderReport(r *output.Renderer, report *pipeline.Report) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}

	if len(report.Rewrites) > 0 {
		r.Header(2, "Rewrites")
		for _, rw := range report.Rewrites {
			r.StatusLine(rw.Rule, "info", fmt.Sprintf("(%d matches)", rw.Matches))
		}
		r.Println("")
	}

	r.Header(2, "Files")
	status := "success"
	if report.DryRun {
		status = "planned"
	}
	for _, f := range report.Files {
		r.StatusLine(f.Name, status, fmt.Sprintf("(%d lines)", f.Lines))
	}

	if len(report.Skipped) > 0 {
		r.Println("")
		r.Header(2, "Skipped")
		for _, s := range report.Skipped {
			r.StatusLine(s.Label, "skipped", s.Reason)
		}
	}

	r.Println("")
	elapsed := report.Duration.Round(time.Millisecond)
	if report.DryRun {
		r.Success(fmt.Sprintf("Dry run: %d files would be written to %s (%s)", len(report.Files), report.OutputDir, elapsed))
	} else {
		r.Success(fmt.Sprintf("Split %s into %d files in %s (%s)", report.Source, len(report.Files), report.OutputDir, elapsed))
	}
	if n := len(report.Skipped); n > 0 {
		r.Warning(fmt.Sprintf("%d segments skipped", n))
	}
	return nil
}

// renderPlanTable prints one row per located segment and per skipped one.
func renderPlanTable(r *output.Renderer, report *pipeline.Report) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}

	rows := make([][]string, 0, len(report.Files)+len(report.Skipped))
	for _, f := range report.Files {
		part := ""
		if f.Part > 0 {
			part = strconv.Itoa(f.Part)
		}
		rows = append(rows, []string{
			f.Label, f.Name, part,
			strconv.Itoa(f.Start), strconv.Itoa(f.End),
			strconv.Itoa(f.Lines),
		})
	}
	for _, s := range report.Skipped {
		rows = append(rows, []string{s.Label, "-", "", "", "", string(s.Code)})
	}

	r.Header(2, fmt.Sprintf("Plan for %s (%d lines)", report.Source, report.SourceLines))
	r.Table([]string{"Segment", "File", "Part", "Start", "End", "Lines"}, rows)
	return nil
}

// renderPlanSegments prints the resolved plan without a dump to evaluate.
func renderPlanSegments(r *output.Renderer, p *plan.Plan) error {
	specs, err := p.Specs()
	if err != nil {
		return err
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(specs)
	}

	rows := make([][]string, 0, len(specs))
	for _, s := range specs {
		limit := ""
		if s.Subdividable() {
			limit = strconv.Itoa(s.MaxLines)
			if s.MaxLines <= 0 {
				limit = strconv.Itoa(segment.New(p.EngineConfig(nil)).Threshold())
			}
		}
		rows = append(rows, []string{
			s.Label, s.Title, s.Start, s.End, s.EndMode.String(), s.After.String(), limit,
		})
	}

	r.Header(2, fmt.Sprintf("Plan (%d segments)", len(specs)))
	r.Table([]string{"Segment", "Title", "Start", "End", "End mode", "After", "Max lines"}, rows)
	return nil
}
