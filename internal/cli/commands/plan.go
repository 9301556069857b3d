package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsplit/internal/pipeline"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [source]",
		Short: "Show where each segment lands without writing files",
		Long: `Evaluate the plan against the dump and print a table of segments.

Without a source dump the resolved plan itself is printed.

Every located segment is listed with its output file, its byte span in the
(rewritten) dump and its line count. Segments that cannot be located are
listed with the reason code. Nothing is written, not even with write_back set.`,
		Example: `  # Inspect the plan in ./sqlsplit.yaml
  sqlsplit plan

  # Inspect a plan file against another dump as JSON
  sqlsplit plan other.sql --plan plan.yaml -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			cfg := cc.Cfg
			if len(args) > 0 {
				cfg.Source = args[0]
			}
			if cfg.Source == "" {
				if err := cfg.Plan.Validate(); err != nil {
					return fmt.Errorf("invalid plan: %w", err)
				}
				return renderPlanSegments(cc.Renderer, &cfg.Plan)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.ValidateSource(); err != nil {
				return err
			}

			report, err := pipeline.Run(cmd.Context(), pipeline.Options{
				Source:    cfg.Source,
				Encoding:  cfg.Encoding,
				OutputDir: cfg.OutputDir,
				Plan:      &cfg.Plan,
				DryRun:    true,
				Logger:    cc.Logger,
			})
			if err != nil {
				return err
			}
			return renderPlanTable(cc.Renderer, report)
		},
	}

	addPlanFlags(cmd)
	return cmd
}
