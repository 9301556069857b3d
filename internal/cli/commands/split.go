package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsplit/internal/cli/config"
	"github.com/leapstack-labs/sqlsplit/internal/pipeline"
)

// SplitOptions holds options for the split command that are not part of the
// layered configuration.
type SplitOptions struct {
	DryRun   bool
	Watch    bool
	Debounce time.Duration
}

// NewSplitCommand creates the split command.
func NewSplitCommand() *cobra.Command {
	opts := &SplitOptions{}

	cmd := &cobra.Command{
		Use:   "split [source]",
		Short: "Split a SQL dump into per-section files",
		Long: `Split a SQL dump into one file per planned segment.

Each segment is located by its start and end markers, wrapped in the standard
header and written to the output directory. Segments whose markers are missing
are reported and skipped; the remaining files are still written.

The source dump comes from the argument, or from "source" in sqlsplit.yaml.`,
		Example: `  # Split using ./sqlsplit.yaml
  sqlsplit split

  # Split a specific dump with a separate plan file
  sqlsplit split dump/schema.sql --plan plan.yaml --out-dir split

  # Show what would be written
  sqlsplit split --dry-run

  # Re-split whenever the dump or plan changes
  sqlsplit split --watch`,
		Aliases: []string{"run"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, args, opts)
		},
	}

	addPlanFlags(cmd)
	cmd.Flags().StringP("out-dir", "d", "", "Output directory (default: split)")
	cmd.Flags().Bool("clean", false, "Remove existing *.sql files from the output directory first")
	cmd.Flags().Bool("write-back", false, "Save rewritten dump over the source when a rewrite matched")
	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "Evaluate the plan without writing files")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-split when the dump, config or plan file changes")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", pipeline.DefaultDebounce, "Quiet period before a watched change triggers a re-split")

	return cmd
}

// addPlanFlags registers the flags that shape plan evaluation. Their names are
// mapped onto config keys by the config loader.
func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("plan", "p", "", "Plan file replacing the plan section of sqlsplit.yaml")
	cmd.Flags().String("database", "", "Database named in the USE statement of every header")
	cmd.Flags().String("title-prefix", "", "Prefix of every header banner")
	cmd.Flags().Int("threshold", 0, "Default line limit for subdividable segments")
	cmd.Flags().Int("max-span", 0, "Reject segments longer than this many bytes (0 disables)")
	cmd.Flags().String("encoding", "", "Source dump encoding (default: utf-8)")

	_ = cmd.RegisterFlagCompletionFunc("plan", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
	_ = cmd.RegisterFlagCompletionFunc("encoding", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"utf-8", "gbk", "gb18030", "big5", "shift_jis", "windows-1252"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runSplit(cmd *cobra.Command, args []string, opts *SplitOptions) error {
	cc := NewCommandContext(cmd)

	once := func(ctx context.Context, cfg *config.Config) error {
		if len(args) > 0 {
			cfg.Source = args[0]
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.ValidateSource(); err != nil {
			return err
		}

		report, err := pipeline.Run(ctx, pipeline.Options{
			Source:    cfg.Source,
			Encoding:  cfg.Encoding,
			OutputDir: cfg.OutputDir,
			Plan:      &cfg.Plan,
			DryRun:    opts.DryRun,
			Clean:     cfg.Clean,
			WriteBack: cfg.WriteBack,
			Logger:    cc.Logger,
		})
		if err != nil {
			return err
		}
		return renderReport(cc.Renderer, report)
	}

	if err := once(cmd.Context(), cc.Cfg); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files := []string{cc.Cfg.Source, config.GetConfigFileUsed(), config.GetPlanFileUsed()}
	cc.Renderer.Println("")
	cc.Renderer.Println("Watching for changes (Ctrl+C to stop)...")

	return pipeline.Watch(ctx, files, opts.Debounce, cc.Logger, func(ctx context.Context) error {
		cfg, err := reloadConfig(cmd)
		if err != nil {
			cc.Renderer.Error(err.Error())
			return err
		}
		if err := once(ctx, cfg); err != nil {
			cc.Renderer.Error(err.Error())
			return err
		}
		return nil
	})
}
