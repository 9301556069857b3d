package pipeline

import (
	"context"
	"errors"
	"os"

	"github.com/leapstack-labs/sqlsplit/internal/sink"
	"github.com/leapstack-labs/sqlsplit/pkg/segment"
)

// Code is a coarse error class used in reports and log attributes.
type Code string

// Error classes.
const (
	CodeUnknown Code = "unknown"
	CodeMarker  Code = "marker_not_found"
	CodeSpan    Code = "inverted_span"
	CodeIO      Code = "io"
	CodeCancel  Code = "cancel"
)

// Classify maps an error to its class using sentinels and error types only.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, segment.ErrMarkerNotFound):
		return CodeMarker
	case errors.Is(err, segment.ErrInvertedSpan):
		return CodeSpan
	case errors.Is(err, sink.ErrPathInvalid):
		return CodeIO
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var lerr *os.LinkError
	if errors.As(err, &lerr) {
		return CodeIO
	}
	return CodeUnknown
}
