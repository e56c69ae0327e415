// Package span holds half-open byte ranges into an original buffer and the
// replacement engine that rewrites a buffer from a set of them.
package span

import (
	"fmt"
	"iter"
	"slices"

	"github.com/tidwall/btree"

	"script-translator/internal/errs"
)

// Span is a half-open byte range [Start, End) into an original buffer.
type Span struct {
	Start, End int
}

// New returns the span [start, end).
func New(start, end int) Span {
	return Span{Start: start, End: end}
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

// Valid reports whether the span is non-empty and fits a buffer of length n.
func (s Span) Valid(n int) bool {
	return 0 <= s.Start && s.Start < s.End && s.End <= n
}

// Overlaps reports whether both spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Shift moves the span by d bytes.
func (s Span) Shift(d int) Span {
	return Span{Start: s.Start + d, End: s.End + d}
}

func (s Span) String() string {
	return fmt.Sprintf("[%d:%d]", s.Start, s.End)
}

// Set is an ordered collection of pairwise disjoint spans.
//
// A zero value is ready to use.
type Set struct {
	// Keyed by Start, valued by End.
	tree btree.Map[int, int]
}

// Add inserts s, or reports why it cannot be held by the set.
func (set *Set) Add(s Span) error {
	if s.Start < 0 || s.Start >= s.End {
		return fmt.Errorf("add span %s: %w", s, errs.ErrOffsetOutOfRange)
	}
	if set.Intersects(s) {
		return fmt.Errorf("add span %s: %w", s, errs.ErrOverlap)
	}
	set.tree.Set(s.Start, s.End)
	return nil
}

// Intersects reports whether any span in the set overlaps s.
func (set *Set) Intersects(s Span) bool {
	hit := false
	// Closest span starting at or before s.Start.
	set.tree.Descend(s.Start, func(start, end int) bool {
		hit = end > s.Start
		return false
	})
	if hit {
		return true
	}
	// Closest span starting at or after s.Start.
	set.tree.Ascend(s.Start, func(start, end int) bool {
		hit = start < s.End
		return false
	})
	return hit
}

// Len returns the number of spans held.
func (set *Set) Len() int {
	return set.tree.Len()
}

// All yields the spans in ascending order.
func (set *Set) All() iter.Seq[Span] {
	return func(yield func(Span) bool) {
		set.tree.Scan(func(start, end int) bool {
			return yield(Span{Start: start, End: end})
		})
	}
}

// Replacement substitutes Text for the bytes covered by Span.
type Replacement struct {
	Span
	ID   string
	Text []byte
}

// Apply returns a new buffer with every replacement applied. The input buffer
// is never modified.
//
// Replacements are applied by descending start offset so that the offsets of
// replacements not yet applied stay valid. A replacement that does not fit the
// buffer, or that overlaps one already applied, is skipped and reported.
func Apply(buf []byte, reps []Replacement) ([]byte, []*errs.SkipError) {
	ordered := slices.Clone(reps)
	slices.SortStableFunc(ordered, func(a, b Replacement) int {
		return b.Start - a.Start
	})

	var (
		skipped []*errs.SkipError
		applied Set
	)
	out := slices.Clone(buf)
	for _, r := range ordered {
		if !r.Valid(len(buf)) {
			skipped = append(skipped, errs.Skip(r.ID, r.Start, r.End, errs.ErrOffsetOutOfRange))
			continue
		}
		if err := applied.Add(r.Span); err != nil {
			skipped = append(skipped, errs.Skip(r.ID, r.Start, r.End, errs.ErrOverlap))
			continue
		}
		out = slices.Concat(out[:r.Start], r.Text, out[r.End:])
	}
	return out, skipped
}
