// Package plan loads and validates split plans: the ordered list of segment
// definitions plus the header and subdivision defaults they share.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlsplit/internal/rewrite"
	"github.com/leapstack-labs/sqlsplit/pkg/segment"
)

// Plan is the whole configurable behaviour of a split run.
type Plan struct {
	Database    string `koanf:"database" yaml:"database"`
	TitlePrefix string `koanf:"title_prefix" yaml:"title_prefix"`
	Header      string `koanf:"header" yaml:"header"` // template override, see segment.Header
	Threshold   int    `koanf:"threshold" yaml:"threshold"`
	MaxSpan     int    `koanf:"max_span" yaml:"max_span"`

	Rewrites []rewrite.Rule `koanf:"rewrites" yaml:"rewrites"`
	Segments []Segment      `koanf:"segments" yaml:"segments"`
}

// Segment is the configuration form of segment.Spec.
type Segment struct {
	Label string `koanf:"label" yaml:"label"`
	Title string `koanf:"title" yaml:"title"`
	File  string `koanf:"file" yaml:"file"`

	Start   string          `koanf:"start" yaml:"start"`
	End     string          `koanf:"end" yaml:"end"`
	EndMode segment.EndMode `koanf:"end_mode" yaml:"end_mode"`
	After   segment.Anchor  `koanf:"after" yaml:"after"`

	MaxBytes        int  `koanf:"max_bytes" yaml:"max_bytes"`
	TrailingNewline bool `koanf:"trailing_newline" yaml:"trailing_newline"`

	MaxLines    int                 `koanf:"max_lines" yaml:"max_lines"`
	Preamble    string              `koanf:"preamble" yaml:"preamble"`
	Split       segment.SplitPolicy `koanf:"split" yaml:"split"`
	SplitMarker string              `koanf:"split_marker" yaml:"split_marker"`

	Files  []string `koanf:"files" yaml:"files"`   // names of the two parts
	Titles []string `koanf:"titles" yaml:"titles"` // titles of the two parts
}

// ErrEmptyPlan is returned when a plan declares no segments.
var ErrEmptyPlan = errors.New("plan has no segments")

// Load reads a plan from a YAML file. Unknown fields are rejected.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided plan file
	if err != nil {
		return nil, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML plan strictly.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPlan
		}
		return nil, err
	}
	return &p, nil
}

// DecodeHook converts configuration strings into the segment enum types when a
// plan is unmarshalled through koanf.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Validate checks every segment and the part name lists.
func (p *Plan) Validate() error {
	if len(p.Segments) == 0 {
		return ErrEmptyPlan
	}
	if p.Threshold < 0 || p.MaxSpan < 0 {
		return fmt.Errorf("threshold and max_span must not be negative")
	}
	if _, err := rewrite.Compile(p.Rewrites); err != nil {
		return fmt.Errorf("invalid rewrite: %w", err)
	}
	var errs []error
	for i, s := range p.Segments {
		if err := s.Spec().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("segments[%d]: %w", i, err))
		}
		if len(s.Files) > 2 || len(s.Titles) > 2 {
			errs = append(errs, fmt.Errorf("segments[%d]: files and titles take at most two entries", i))
		}
	}
	return errors.Join(errs...)
}

// Specs validates the plan and converts it into engine specs.
func (p *Plan) Specs() ([]segment.Spec, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	specs := make([]segment.Spec, 0, len(p.Segments))
	for _, s := range p.Segments {
		specs = append(specs, s.Spec())
	}
	return specs, nil
}

// EngineConfig returns the engine settings declared by the plan.
func (p *Plan) EngineConfig(logger *slog.Logger) segment.Config {
	return segment.Config{
		Header: segment.Header{
			Prefix:   p.TitlePrefix,
			Database: p.Database,
			Template: p.Header,
		},
		Threshold: p.Threshold,
		MaxSpan:   p.MaxSpan,
		Logger:    logger,
	}
}

// Spec converts the configuration entry. Titles missing from the
// configuration are derived from the label.
func (s Segment) Spec() segment.Spec {
	spec := segment.Spec{
		Label:           s.Label,
		Title:           s.Title,
		Start:           s.Start,
		End:             s.End,
		EndMode:         s.EndMode,
		After:           s.After,
		MaxBytes:        s.MaxBytes,
		TrailingNewline: s.TrailingNewline,
		MaxLines:        s.MaxLines,
		Preamble:        s.Preamble,
		Split:           s.Split,
		SplitMarker:     s.SplitMarker,
		File:            s.File,
	}
	if spec.Title == "" {
		spec.Title = TitleFromLabel(s.Label)
	}
	copy(spec.PartFiles[:], s.Files)
	copy(spec.PartTitles[:], s.Titles)
	return spec
}

// TitleFromLabel turns "data_21_users_inert" into "Data 21 Users Inert".
func TitleFromLabel(label string) string {
	words := strings.FieldsFunc(label, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
