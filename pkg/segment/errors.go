package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrMarkerNotFound reports that a start or end marker is absent from the
	// searched part of the document. Callers skip the spec and continue.
	ErrMarkerNotFound = errors.New("marker not found")

	// ErrInvertedSpan reports a resolved span whose end precedes its start or
	// which is longer than the configured maximum. The spec produces no output.
	ErrInvertedSpan = errors.New("inverted span")
)

// MarkerError carries the marker that could not be located.
type MarkerError struct {
	Role   string // "start" or "end"
	Marker string
	From   int
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("%s marker %q not found after offset %d", e.Role, e.Marker, e.From)
}

// Unwrap allows errors.Is(err, ErrMarkerNotFound).
func (e *MarkerError) Unwrap() error { return ErrMarkerNotFound }

// SpanError describes a span rejected by the plausibility check.
type SpanError struct {
	Span   Span
	Limit  int
	Reason string
}

func (e *SpanError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("span [%d,%d) %s (limit %d bytes)", e.Span.Start, e.Span.End, e.Reason, e.Limit)
	}
	return fmt.Sprintf("span [%d,%d) %s", e.Span.Start, e.Span.End, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvertedSpan).
func (e *SpanError) Unwrap() error { return ErrInvertedSpan }
