package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlsplit/internal/cli/config"
	"github.com/leapstack-labs/sqlsplit/internal/cli/output"
	"github.com/leapstack-labs/sqlsplit/internal/pipeline"
	"github.com/leapstack-labs/sqlsplit/internal/source"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [source]",
		Short: "Check the project for problems before splitting",
		Long: `Check configuration, source dump and plan for problems.

The doctor reports, grouped by area:
- whether a config file was found
- whether the source dump exists and decodes with the configured encoding
- whether the plan is valid
- duplicate labels and output file names
- segments whose markers cannot be located
- segments whose spans overlap
- whether the output directory can be created

Nothing is written. The exit status is non-zero only when an error-level
check fails.`,
		Example: `  # Check the project in the current directory
  sqlsplit doctor

  # Machine-readable report
  sqlsplit doctor -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			if len(args) > 0 {
				cc.Cfg.Source = args[0]
			}

			out := diagnose(cmd.Context(), cc.Cfg, config.GetConfigFileUsed())

			var err error
			switch cc.Renderer.EffectiveMode() {
			case output.ModeJSON:
				err = cc.Renderer.JSON(out)
			case output.ModeMarkdown:
				renderDoctorMarkdown(cc.Renderer, out)
			default:
				renderDoctorText(cc.Renderer, out)
			}
			if err != nil {
				return err
			}
			if out.Failed() {
				return errors.New("doctor found errors")
			}
			return nil
		},
	}

	addPlanFlags(cmd)
	cmd.Flags().StringP("out-dir", "d", "", "Output directory to check (default: split)")
	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	ConfigFile  string `json:"config_file,omitempty"`
	Source      string `json:"source"`
	SourceLines int    `json:"source_lines"`
	Segments    int    `json:"segments"`
	Located     int    `json:"located"`
	Files       int    `json:"files"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

// Failed reports whether an error-level check failed.
func (o *DoctorOutput) Failed() bool {
	for _, c := range o.HealthChecks {
		if c.Status == "error" {
			return true
		}
	}
	return false
}

// check is a health rule under construction.
type check struct {
	HealthCheck
	severity string
}

func newCheck(id, name, group, severity string) *check {
	return &check{HealthCheck: HealthCheck{RuleID: id, Name: name, Group: group, Status: "pass"}, severity: severity}
}

func (c *check) fail(format string, args ...any) {
	c.Status = c.severity
	c.IssueCount++
	c.Details = append(c.Details, fmt.Sprintf(format, args...))
}

// diagnose runs every check against cfg. It never writes to disk.
func diagnose(ctx context.Context, cfg *config.Config, configFile string) *DoctorOutput {
	summary := ProjectSummary{
		ConfigFile: configFile,
		Source:     cfg.Source,
		Segments:   len(cfg.Plan.Segments),
	}

	cfgFound := newCheck("CF01", "Config file found", "config", "warn")
	if configFile == "" {
		cfgFound.fail("no sqlsplit.yaml in the working directory and no --config given")
	}

	srcReadable := newCheck("SR01", "Source dump readable", "source", "error")
	switch {
	case cfg.Source == "":
		srcReadable.fail("no source configured")
	default:
		doc, err := source.Read(cfg.Source, cfg.Encoding)
		if err != nil {
			srcReadable.fail("%v", err)
		} else {
			summary.SourceLines = doc.Lines()
		}
	}

	planValid := newCheck("PL01", "Plan is valid", "plan", "error")
	if err := cfg.Plan.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			planValid.fail("%s", line)
		}
	}

	dupLabels := newCheck("PL02", "Labels are unique", "plan", "warn")
	dupFiles := newCheck("PL03", "Output files are unique", "plan", "error")
	labels := make(map[string]int)
	for _, s := range cfg.Plan.Segments {
		labels[s.Label]++
	}
	for _, label := range sortedKeys(labels) {
		if labels[label] > 1 {
			dupLabels.fail("label %q is used %d times", label, labels[label])
		}
	}

	located := newCheck("PL04", "Markers are located", "plan", "warn")
	overlaps := newCheck("PL05", "Segments do not overlap", "plan", "warn")
	if srcReadable.Status == "pass" && planValid.Status == "pass" {
		report, err := pipeline.Run(ctx, pipeline.Options{
			Source:   cfg.Source,
			Encoding: cfg.Encoding,
			Plan:     &cfg.Plan,
			DryRun:   true,
		})
		if err != nil {
			located.fail("%v", err)
		} else {
			summary.Files = len(report.Files)
			for _, s := range report.Skipped {
				located.fail("%s: %s", s.Label, s.Reason)
			}
			files := make(map[string]int)
			for _, f := range report.Files {
				files[f.Name]++
			}
			for _, name := range sortedKeys(files) {
				if files[name] > 1 {
					dupFiles.fail("%s is written %d times; later segments overwrite earlier ones", name, files[name])
				}
			}
			spans := uniqueSpans(report.Files)
			summary.Located = len(spans)
			for i := 1; i < len(spans); i++ {
				if spans[i].Start < spans[i-1].End {
					overlaps.fail("%s overlaps %s", spans[i].Label, spans[i-1].Label)
				}
			}
		}
	}

	outDir := newCheck("OD01", "Output directory usable", "output", "warn")
	if err := checkOutputDir(cfg.OutputDir); err != nil {
		outDir.fail("%v", err)
	}

	all := []*check{cfgFound, srcReadable, planValid, dupLabels, dupFiles, located, overlaps, outDir}
	checks := make([]HealthCheck, 0, len(all))
	issues := 0
	for _, c := range all {
		checks = append(checks, c.HealthCheck)
		issues += c.IssueCount
	}
	sort.SliceStable(checks, func(i, j int) bool {
		return groupOrder(checks[i].Group) < groupOrder(checks[j].Group)
	})

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issues,
	}
}

// uniqueSpans returns one span per label, ordered by start offset.
func uniqueSpans(files []pipeline.FileReport) []pipeline.FileReport {
	seen := make(map[string]bool)
	var spans []pipeline.FileReport
	for _, f := range files {
		if seen[f.Label] {
			continue
		}
		seen[f.Label] = true
		spans = append(spans, f)
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// checkOutputDir reports whether dir exists as a directory or could be created.
func checkOutputDir(dir string) error {
	if dir == "" {
		return errors.New("output_dir is empty")
	}
	for p := filepath.Clean(dir); ; p = filepath.Dir(p) {
		info, err := os.Stat(p)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", p)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return err
		}
		if parent := filepath.Dir(p); parent == p {
			return nil
		}
	}
}

func groupOrder(group string) int {
	switch group {
	case "config":
		return 0
	case "source":
		return 1
	case "plan":
		return 2
	default:
		return 3
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// calculateHealthScore computes a health score from 0-100. Errors count
// double.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, c := range checks {
		switch c.Status {
		case "error":
			score -= c.IssueCount * 20
		case "warn":
			score -= c.IssueCount * 5
		}
	}
	return max(score, 0)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, c := range checks {
		if c.IssueCount == 0 {
			continue
		}
		if rec := getRecommendation(c.RuleID); rec != "" {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific rule.
func getRecommendation(ruleID string) string {
	switch ruleID {
	case "CF01":
		return "Run 'sqlsplit init' to create a sqlsplit.yaml"
	case "SR01":
		return "Set source in sqlsplit.yaml or pass the dump path as an argument; check encoding for non-UTF-8 dumps"
	case "PL01":
		return "Fix the listed plan entries; every segment needs a label and markers"
	case "PL02":
		return "Give every segment its own label so skip reports stay unambiguous"
	case "PL03":
		return "Set file or files so each segment writes a distinct file"
	case "PL04":
		return "Compare the missing markers with the dump; use 'sqlsplit plan' to see located spans"
	case "PL05":
		return "Use end_mode: exclusive or after: previous so neighbouring segments do not share text"
	case "OD01":
		return "Point output_dir at a directory path that is not a file"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header.Render("sqlsplit Project Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Bold.Render("Project Summary"))
	r.Printf("   Source: %s (%d lines)\n", out.Summary.Source, out.Summary.SourceLines)
	r.Printf("   Segments: %d | Located: %d | Files: %d\n", out.Summary.Segments, out.Summary.Located, out.Summary.Files)
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, c := range out.HealthChecks {
		if c.Group != currentGroup {
			currentGroup = c.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch c.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.Error.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, c.RuleID, c.Name)
		if c.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", c.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range c.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(c.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Bold.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# sqlsplit Project Health Report")
	r.Println("")

	r.Println("## Project Summary")
	r.Println("")
	r.Println(output.FormatKeyValue("Source", fmt.Sprintf("%s (%d lines)", out.Summary.Source, out.Summary.SourceLines)))
	r.Println(output.FormatKeyValue("Segments", fmt.Sprint(out.Summary.Segments)))
	r.Println(output.FormatKeyValue("Located", fmt.Sprint(out.Summary.Located)))
	r.Println(output.FormatKeyValue("Files", fmt.Sprint(out.Summary.Files)))
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, c := range out.HealthChecks {
		if c.Group != currentGroup {
			currentGroup = c.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := strings.ToUpper(c.Status)
		line := fmt.Sprintf("- **[%s]** %s: %s", status, c.RuleID, c.Name)
		if c.IssueCount > 0 {
			line += fmt.Sprintf(" (%d issues)", c.IssueCount)
		}
		r.Println(line)
		for _, detail := range c.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}
