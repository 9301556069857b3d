package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsplit/internal/cli/output"
	"github.com/leapstack-labs/sqlsplit/internal/pipeline"
	"github.com/leapstack-labs/sqlsplit/pkg/segment"
)

// RenderOutput is the JSON output of one rendered file.
type RenderOutput struct {
	Label string `json:"label"`
	File  string `json:"file"`
	Part  int    `json:"part,omitempty"`
	Text  string `json:"text"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var part int

	cmd := &cobra.Command{
		Use:   "render <label> [source]",
		Short: "Print the rendered file of one segment",
		Long: `Print exactly what split would write for one segment, header included.

The whole plan is evaluated so chained searches (after: previous) resolve
the same way they do during a split. Nothing is written.

Output adapts to environment:
  - Terminal: the file content as is
  - Piped/Scripted: Markdown with a code block per file`,
		Example: `  # Render a segment
  sqlsplit render 01_tenant_dept

  # Only the second half of a subdivided segment
  sqlsplit render data_26_position_role_map --part 2

  # Save it somewhere else
  sqlsplit render 01_tenant_dept -o text > tenant.sql`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			cfg := cc.Cfg
			if len(args) > 1 {
				cfg.Source = args[1]
			}
			if err := cfg.ValidateSource(); err != nil {
				return err
			}

			res, err := pipeline.Evaluate(pipeline.Options{
				Source:   cfg.Source,
				Encoding: cfg.Encoding,
				Plan:     &cfg.Plan,
				Logger:   cc.Logger,
			})
			if err != nil {
				return err
			}
			segs, err := selectSegments(res, args[0], part)
			if err != nil {
				return err
			}
			return renderSegments(cc.Renderer, segs)
		},
	}

	addPlanFlags(cmd)
	cmd.Flags().IntVar(&part, "part", 0, "Only print part 1 or 2 of a subdivided segment")

	return cmd
}

// selectSegments returns the rendered files of label, or the reason it was
// skipped.
func selectSegments(res *segment.Result, label string, part int) ([]segment.Segment, error) {
	for _, s := range res.Skipped {
		if s.Label == label {
			return nil, fmt.Errorf("segment %s was skipped: %w", label, s.Err)
		}
	}
	var segs []segment.Segment
	for _, s := range res.Segments {
		if s.Label != label {
			continue
		}
		if part > 0 && s.Part != part {
			continue
		}
		segs = append(segs, s)
	}
	if len(segs) == 0 {
		if part > 0 {
			return nil, fmt.Errorf("segment %s has no part %d", label, part)
		}
		return nil, fmt.Errorf("no segment labelled %s in the plan", label)
	}
	return segs, nil
}

func renderSegments(r *output.Renderer, segs []segment.Segment) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := make([]RenderOutput, 0, len(segs))
		for _, s := range segs {
			out = append(out, RenderOutput{Label: s.Label, File: s.File, Part: s.Part, Text: s.Text})
		}
		return r.JSON(out)
	case output.ModeMarkdown:
		for i, s := range segs {
			if i > 0 {
				r.Println("")
			}
			r.Println(output.FormatHeader(1, fmt.Sprintf("Rendered SQL: %s", s.File)))
			r.Println("")
			r.Println(output.FormatCodeBlock("sql", s.Text))
		}
	default:
		for _, s := range segs {
			r.Printf("%s", s.Text)
			if !strings.HasSuffix(s.Text, "\n") {
				r.Println("")
			}
		}
	}
	return nil
}
