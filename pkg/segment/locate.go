package segment

import (
	"strings"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) of a document.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Locate finds the first start marker at or after from, then the first end
// marker at or after the resolved start offset. The returned span includes the
// end marker. The end marker is never searched from the document origin.
func Locate(doc, start, end string, from int) (Span, error) {
	startIdx, err := indexFrom(doc, start, from, "start")
	if err != nil {
		return Span{}, err
	}
	endIdx, err := indexFrom(doc, end, startIdx, "end")
	if err != nil {
		return Span{}, err
	}
	return Span{Start: startIdx, End: endIdx + len(end)}, nil
}

// LocateSpec resolves the span of s honouring its end mode.
func LocateSpec(doc string, s Spec, from int) (Span, error) {
	switch s.EndMode {
	case EndExclusive:
		startIdx, err := indexFrom(doc, s.Start, from, "start")
		if err != nil {
			return Span{}, err
		}
		// Skip past the start marker so a shared prefix cannot close an empty span.
		endIdx, err := indexFrom(doc, s.End, startIdx+len(s.Start), "end")
		if err != nil {
			return Span{}, err
		}
		return Span{Start: startIdx, End: endIdx}, nil
	case EndOfDocument:
		startIdx, err := indexFrom(doc, s.Start, from, "start")
		if err != nil {
			return Span{}, err
		}
		return Span{Start: startIdx, End: len(doc)}, nil
	default:
		return Locate(doc, s.Start, s.End, from)
	}
}

// Extract returns the text covered by span.
func Extract(doc string, span Span) string {
	return doc[span.Start:span.End]
}

// CheckSpan rejects spans that end before they start, fall outside the
// document, or exceed maxSpan bytes. A maxSpan of 0 disables the length check.
func CheckSpan(doc string, span Span, maxSpan int) error {
	switch {
	case span.End < span.Start:
		return &SpanError{Span: span, Reason: "ends before it starts"}
	case span.Start < 0 || span.End > len(doc):
		return &SpanError{Span: span, Reason: "lies outside the document"}
	case maxSpan > 0 && span.Len() > maxSpan:
		return &SpanError{Span: span, Limit: maxSpan, Reason: "is implausibly long"}
	}
	return nil
}

// Truncate cuts text to at most n bytes without splitting a UTF-8 sequence.
func Truncate(text string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

func indexFrom(doc, marker string, from int, role string) (int, error) {
	if from < 0 {
		from = 0
	}
	if marker == "" || from > len(doc) {
		return -1, &MarkerError{Role: role, Marker: marker, From: from}
	}
	idx := strings.Index(doc[from:], marker)
	if idx < 0 {
		return -1, &MarkerError{Role: role, Marker: marker, From: from}
	}
	return from + idx, nil
}
