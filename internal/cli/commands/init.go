package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlsplit/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a sqlsplit.yaml in a directory",
		Long: `Create a starter sqlsplit.yaml with one sample segment.

Use --example to create a working demo instead: a small dump, a plan that
exercises rewrites, chained search and subdivision, and a .gitignore for the
output directory.`,
		Example: `  # Initialize in current directory
  sqlsplit init

  # Create the demo project in a new directory
  sqlsplit init demo --example

  # Force overwrite existing config
  sqlsplit init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Create a runnable example project with a sample dump")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "sqlsplit.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}
	if len(groups["dumps"]) > 0 {
		r.Println("")
		r.Header(2, "Dumps")
		for _, f := range groups["dumps"] {
			r.StatusLine(f, "success", "")
		}
	}

	r.Println("")
	r.Success("sqlsplit project initialized!")
	r.Println("")
	r.Println("Next steps:")
	if template == "example" {
		r.Println("  sqlsplit plan     Show where each segment lands")
		r.Println("  sqlsplit split    Write the segment files into split/")
		return nil
	}
	r.Println("  1. Point source at your dump in sqlsplit.yaml")
	r.Println("  2. Describe each section with start and end markers")
	r.Println("  3. Run 'sqlsplit plan' to check the markers")
	r.Println("  4. Run 'sqlsplit split' to write the files")
	return nil
}
