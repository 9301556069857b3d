// Package segment is the marker-based segmentation engine behind sqlsplit.
//
// A Spec names a span of a SQL dump by two literal markers. The engine locates
// each span in plan order, extracts it, optionally halves it by line count
// (reattaching an INSERT preamble to the second half) and renders every piece
// behind a banner header.
//
// The package works on byte offsets and lines only. It never parses SQL and
// imports nothing outside the standard library.
package segment
