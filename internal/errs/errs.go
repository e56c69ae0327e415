// Package errs defines the failure taxonomy shared by the tokenizer, the
// string-table codec and the format adapters. Every failure in this taxonomy is
// local: it costs one entry or one block, never the whole file.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrStructuralMismatch indicates an unmatched delimiter or string literal.
	ErrStructuralMismatch = errors.New("structural mismatch")
	// ErrDecodeFailure indicates a payload that no configured encoding decodes cleanly.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrOffsetOutOfRange indicates span metadata that no longer fits the buffer.
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrAmbiguousDelimiter indicates no safe long-bracket level within the search bound.
	ErrAmbiguousDelimiter = errors.New("ambiguous delimiter choice")
	// ErrUnencodable indicates a translation the recorded encoding cannot represent.
	ErrUnencodable = errors.New("unencodable text")
	// ErrStaleEntry indicates an entry produced from different file content.
	ErrStaleEntry = fmt.Errorf("stale entry: %w", ErrOffsetOutOfRange)
	// ErrOverlap indicates a span intersecting one already accepted.
	ErrOverlap = errors.New("overlapping span")
)

// SkipError records one replacement or block that was skipped.
type SkipError struct {
	ID         string // Entry ID, if known
	Start, End int    // Offsets in the original buffer
	Err        error
}

func (e *SkipError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("skip %s [%d:%d]: %v", e.ID, e.Start, e.End, e.Err)
	}
	return fmt.Sprintf("skip [%d:%d]: %v", e.Start, e.End, e.Err)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// Skip builds a SkipError.
func Skip(id string, start, end int, err error) *SkipError {
	return &SkipError{ID: id, Start: start, End: end, Err: err}
}
