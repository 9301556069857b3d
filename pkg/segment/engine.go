package segment

import (
	"log/slog"
)

// Config holds engine-wide settings.
type Config struct {
	Header Header
	// Threshold is the default line limit for subdividable specs.
	Threshold int
	// MaxSpan rejects spans longer than this many bytes; 0 disables the check.
	MaxSpan int
	Logger  *slog.Logger
}

// Engine evaluates specs against a document. It holds no per-run state and is
// safe to reuse.
type Engine struct {
	header    Header
	threshold int
	maxSpan   int
	logger    *slog.Logger
}

// New creates an engine, applying defaults for zero values.
func New(cfg Config) *Engine {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		header:    cfg.Header,
		threshold: threshold,
		maxSpan:   cfg.MaxSpan,
		logger:    logger,
	}
}

// Threshold returns the default line limit for subdividable specs.
func (e *Engine) Threshold() int { return e.threshold }

// Segment is one rendered piece of output.
type Segment struct {
	Label string
	Title string
	File  string
	// Part is 0 for an undivided segment, otherwise 1 or 2.
	Part int
	Span Span
	Body string // extracted text, preamble included for part 2
	Text string // header + Body
}

// Lines returns the line count of the rendered text.
func (s Segment) Lines() int { return LineCount(s.Text) }

// Skip records a spec that produced no output.
type Skip struct {
	Label string
	Err   error
}

// Result is the outcome of one run.
type Result struct {
	Segments []Segment
	Skipped  []Skip
}

// Files returns the output file names in emission order.
func (r *Result) Files() []string {
	files := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		files = append(files, s.File)
	}
	return files
}

// Run evaluates specs strictly in order. Missing markers and implausible spans
// skip the affected spec; the run always completes.
func (e *Engine) Run(doc string, specs []Spec) *Result {
	res := &Result{}
	prevEnd := 0
	for _, s := range specs {
		from := 0
		if s.After == AnchorPrevious {
			from = prevEnd
		}
		segs, span, err := e.Evaluate(doc, s, from)
		if err != nil {
			e.logger.Warn("skipping segment", "label", s.Label, "error", err)
			res.Skipped = append(res.Skipped, Skip{Label: s.Label, Err: err})
			continue
		}
		prevEnd = span.End
		res.Segments = append(res.Segments, segs...)
	}
	return res
}

// Evaluate resolves one spec searching from offset from and returns its
// rendered segments: one, or two when the body is subdivided.
func (e *Engine) Evaluate(doc string, s Spec, from int) ([]Segment, Span, error) {
	span, err := LocateSpec(doc, s, from)
	if err != nil {
		return nil, Span{}, err
	}
	if err := CheckSpan(doc, span, e.maxSpan); err != nil {
		return nil, span, err
	}

	body := Truncate(Extract(doc, span), s.MaxBytes)
	if s.TrailingNewline {
		body += "\n"
	}

	limit := s.MaxLines
	if limit <= 0 {
		limit = e.threshold
	}
	if !s.Subdividable() || LineCount(body) <= limit {
		e.logger.Debug("segment located", "label", s.Label, "start", span.Start, "end", span.End)
		return []Segment{e.segment(s, 0, s.title(), s.fileName(), span, body)}, span, nil
	}

	part1, part2 := Subdivide(body, s.SplitFunc(), s.Preamble)
	e.logger.Debug("segment subdivided", "label", s.Label, "lines", LineCount(body),
		"limit", limit, "policy", s.Split.String())
	return []Segment{
		e.segment(s, 1, s.partTitle(1), s.partFile(1), span, part1),
		e.segment(s, 2, s.partTitle(2), s.partFile(2), span, part2),
	}, span, nil
}

func (e *Engine) segment(s Spec, part int, title, file string, span Span, body string) Segment {
	return Segment{
		Label: s.Label,
		Title: title,
		File:  file,
		Part:  part,
		Span:  span,
		Body:  body,
		Text:  Render(e.header, title, body),
	}
}
