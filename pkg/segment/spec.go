package segment

import (
	"fmt"
	"strings"
)

// DefaultThreshold is the line count above which a subdividable segment is
// halved when its Spec does not set MaxLines.
const DefaultThreshold = 200

// =============================================================================
// EndMode
// =============================================================================

// EndMode controls where a located span stops.
type EndMode int

const (
	// EndInclusive stops after the end marker, so a closing ");" is kept.
	EndInclusive EndMode = iota
	// EndExclusive stops right before the end marker. Used when the end marker
	// is the comment that opens the next section.
	EndExclusive
	// EndOfDocument runs to the end of the document and ignores End.
	EndOfDocument
)

// String returns the configuration name of the mode.
func (m EndMode) String() string {
	switch m {
	case EndInclusive:
		return "inclusive"
	case EndExclusive:
		return "exclusive"
	case EndOfDocument:
		return "eof"
	default:
		return "unknown"
	}
}

// ParseEndMode converts a configuration string to an EndMode.
// The empty string selects EndInclusive.
func ParseEndMode(s string) (EndMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inclusive":
		return EndInclusive, nil
	case "exclusive":
		return EndExclusive, nil
	case "eof":
		return EndOfDocument, nil
	default:
		return EndInclusive, fmt.Errorf("unknown end mode %q (want inclusive, exclusive or eof)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *EndMode) UnmarshalText(text []byte) error {
	v, err := ParseEndMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m EndMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// =============================================================================
// Anchor
// =============================================================================

// Anchor selects the offset the start-marker search begins at.
type Anchor int

const (
	// AnchorOrigin searches from the beginning of the document.
	AnchorOrigin Anchor = iota
	// AnchorPrevious searches from the end of the previously located span.
	// Specs using it depend on plan order.
	AnchorPrevious
)

// String returns the configuration name of the anchor.
func (a Anchor) String() string {
	switch a {
	case AnchorOrigin:
		return "origin"
	case AnchorPrevious:
		return "previous"
	default:
		return "unknown"
	}
}

// ParseAnchor converts a configuration string to an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "origin":
		return AnchorOrigin, nil
	case "previous":
		return AnchorPrevious, nil
	default:
		return AnchorOrigin, fmt.Errorf("unknown anchor %q (want origin or previous)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Anchor) UnmarshalText(text []byte) error {
	v, err := ParseAnchor(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Anchor) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// =============================================================================
// SplitPolicy
// =============================================================================

// SplitPolicy names the strategy that picks the cut line of a subdivision.
type SplitPolicy int

const (
	// SplitMidpoint cuts at len(lines)/2.
	SplitMidpoint SplitPolicy = iota
	// SplitAtMarker cuts at the first line containing Spec.SplitMarker.
	SplitAtMarker
	// SplitAtStatement cuts at the last value-tuple line at or before the midpoint.
	SplitAtStatement
)

// String returns the configuration name of the policy.
func (p SplitPolicy) String() string {
	switch p {
	case SplitMidpoint:
		return "midpoint"
	case SplitAtMarker:
		return "marker"
	case SplitAtStatement:
		return "statement"
	default:
		return "unknown"
	}
}

// ParseSplitPolicy converts a configuration string to a SplitPolicy.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "midpoint":
		return SplitMidpoint, nil
	case "marker":
		return SplitAtMarker, nil
	case "statement":
		return SplitAtStatement, nil
	default:
		return SplitMidpoint, fmt.Errorf("unknown split policy %q (want midpoint, marker or statement)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *SplitPolicy) UnmarshalText(text []byte) error {
	v, err := ParseSplitPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p SplitPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// =============================================================================
// Spec
// =============================================================================

// Spec is one named extraction request. Specs are declared by the caller and
// evaluated in order.
type Spec struct {
	Label string
	Title string // banner title; Label is used when empty

	Start string
	End   string // ignored for EndOfDocument

	EndMode EndMode
	After   Anchor

	// MaxBytes truncates the extracted body; 0 keeps it whole.
	MaxBytes int
	// TrailingNewline appends "\n" to the body.
	TrailingNewline bool

	// Subdivision. A spec is subdividable when MaxLines or Preamble is set;
	// MaxLines 0 then falls back to the engine threshold.
	MaxLines    int
	Preamble    string
	Split       SplitPolicy
	SplitMarker string

	// Output names. File defaults to "<label>.sql" and PartFiles to
	// "<label>_01.sql" and "<label>_02.sql".
	File       string
	PartFiles  [2]string
	PartTitles [2]string
}

// Subdividable reports whether the spec asks for halving of long bodies.
func (s Spec) Subdividable() bool {
	return s.MaxLines > 0 || s.Preamble != ""
}

// SplitFunc returns the cut function selected by the spec's policy.
func (s Spec) SplitFunc() SplitFunc {
	switch s.Split {
	case SplitAtMarker:
		return AtMarker(s.SplitMarker)
	case SplitAtStatement:
		return AtStatement
	default:
		return Midpoint
	}
}

// Validate checks the fields the engine cannot run without.
// Overlaps and duplicate labels are deliberately not checked.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Label) == "" {
		return fmt.Errorf("label is required")
	}
	if s.Start == "" {
		return fmt.Errorf("segment %q: start marker is required", s.Label)
	}
	if s.End == "" && s.EndMode != EndOfDocument {
		return fmt.Errorf("segment %q: end marker is required unless end_mode is eof", s.Label)
	}
	if s.Split == SplitAtMarker && s.SplitMarker == "" {
		return fmt.Errorf("segment %q: split policy marker requires split_marker", s.Label)
	}
	if s.MaxLines < 0 || s.MaxBytes < 0 {
		return fmt.Errorf("segment %q: max_lines and max_bytes must not be negative", s.Label)
	}
	return nil
}

func (s Spec) title() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Label
}

func (s Spec) fileName() string {
	if s.File != "" {
		return s.File
	}
	return s.Label + ".sql"
}

func (s Spec) partFile(part int) string {
	if f := s.PartFiles[part-1]; f != "" {
		return f
	}
	return fmt.Sprintf("%s_%02d.sql", s.Label, part)
}

func (s Spec) partTitle(part int) string {
	if t := s.PartTitles[part-1]; t != "" {
		return t
	}
	return fmt.Sprintf("%s (part %d)", s.title(), part)
}
