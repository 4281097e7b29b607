package mobi

import "errors"

// Sentinel errors returned by the mobi package.
var (
	// ErrInvalidContainer indicates the buffer is too short to hold a
	// Palm database header or has no records at all.
	ErrInvalidContainer = errors.New("mobi: invalid container")

	// ErrTruncatedOffsetTable indicates the record offset table extends
	// past the end of the buffer.
	ErrTruncatedOffsetTable = errors.New("mobi: record offset table is truncated")
)
