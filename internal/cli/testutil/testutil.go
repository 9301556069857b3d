// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlsplit/internal/cli/output"
)

// ProjectDump is the dump written by SetupTestProject.
const ProjectDump = `-- create tenant
CREATE TABLE tenant (
  id VARCHAR(32) PRIMARY KEY,
  name VARCHAR(64) NOT NULL
) COMMENT 'tenant';

-- insert tenants
INSERT INTO tenant (id, name) VALUES
('T1', 'Acme'),
('T2', 'Globex'),
('T3', 'Initech'),
('T4', 'Umbrella'),
('T5', 'Hooli'),
('T6', 'Stark');

-- end of dump
`

// ProjectConfig is the sqlsplit.yaml written by SetupTestProject.
const ProjectConfig = `source: schema.sql
output_dir: split
plan:
  database: crm
  title_prefix: CRM
  segments:
    - label: 01_tenant
      start: "-- create tenant"
      end: ") COMMENT 'tenant';"
    - label: data_10_tenants
      start: "-- insert tenants"
      end: "-- end of dump"
      end_mode: exclusive
      after: previous
      max_lines: 6
      preamble: "INSERT INTO tenant (id, name) VALUES\n"
    - label: 99_missing
      start: "-- never here"
      end: "-- nor here"
`

// SetupTestProject creates a temporary project with a dump and sqlsplit.yaml.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "schema.sql"), []byte(ProjectDump), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "sqlsplit.yaml"), []byte(ProjectConfig), 0600))
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
