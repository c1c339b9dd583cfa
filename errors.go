package tableparquet

import "errors"

// Error kinds reported by the conversion. Every error returned by this package
// that belongs to one of these kinds wraps the matching sentinel, so callers
// can use errors.Is to tell them apart.
var (
	// ErrInvalidInput reports a nil or malformed table, missing column metadata
	// or a non-positive row group size. It is always returned before any row
	// group is written.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTypeMapping reports a column type that has no columnar mapping.
	// It only occurs when strict type mapping is enabled.
	ErrTypeMapping = errors.New("type mapping failure")

	// ErrEncodingFault reports a cell whose runtime type disagrees with its
	// column schema, or a write rejected by the output sink.
	ErrEncodingFault = errors.New("encoding fault")
)
