// Package block locates named `key = { ... }` sub-structures in script text.
package block

import (
	"bytes"
	"errors"
	"fmt"
	"iter"

	"script-translator/internal/errs"
	"script-translator/internal/span"
	"script-translator/internal/tokenizer"
)

// AnyKey in a fallback list matches the first section present, whatever its key.
const AnyKey = "*"

// ErrNotFound is returned when no requested key has a section.
var ErrNotFound = errors.New("block not found")

// Block is a keyed region bounded by a matched pair of delimiters.
type Block struct {
	Key   string
	Open  int // Offset of the opening delimiter
	Close int // Offset of the matching closing delimiter
}

// Interior returns the span strictly between the delimiters.
func (b Block) Interior() span.Span {
	return span.New(b.Open+1, b.Close)
}

// Extractor finds blocks using the delimiter rules of one syntax.
type Extractor struct {
	syntax tokenizer.Syntax
}

// New returns an Extractor for syn.
func New(syn tokenizer.Syntax) *Extractor {
	return &Extractor{syntax: syn}
}

// Find locates `key = {` among the direct children of buf[from:to] and
// matches its closing delimiter.
func (x *Extractor) Find(buf []byte, from, to int, key string) (Block, error) {
	for i, depth := range x.syntax.Walk(buf, from, to) {
		if depth != 0 {
			continue
		}
		name, open, ok := x.keyAt(buf, i, to, key)
		if !ok {
			continue
		}
		closeAt, err := x.syntax.MatchDelimiter(buf, open)
		if err != nil {
			return Block{}, fmt.Errorf("match %q section: %w", name, err)
		}
		if closeAt >= to {
			return Block{}, fmt.Errorf("section %q escapes enclosing block: %w", name, errs.ErrStructuralMismatch)
		}
		return Block{Key: name, Open: open, Close: closeAt}, nil
	}
	return Block{}, fmt.Errorf("section %q: %w", key, ErrNotFound)
}

// FindFirst tries keys in priority order and returns the first section found.
// A section that is present but unmatched does not stop the search; its error
// is returned only if no later key succeeds.
func (x *Extractor) FindFirst(buf []byte, from, to int, keys []string) (Block, error) {
	var firstErr error
	for _, key := range keys {
		b, err := x.Find(buf, from, to, key)
		if err == nil {
			return b, nil
		}
		if firstErr == nil && !errors.Is(err, ErrNotFound) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return Block{}, firstErr
	}
	return Block{}, fmt.Errorf("sections %q: %w", keys, ErrNotFound)
}

// All yields every `key = {` block in buf at any depth. Blocks never overlap:
// scanning resumes after the close of each matched block. An unmatched block
// is yielded with an error wrapping errs.ErrStructuralMismatch and scanning
// restarts on the line after its opening delimiter, with no literal open.
func (x *Extractor) All(buf []byte, key string) iter.Seq2[Block, error] {
	return func(yield func(Block, error) bool) {
		from := 0
		for from < len(buf) {
			b, next, err := x.nextAnyDepth(buf, from, key)
			if next < 0 {
				return
			}
			if !yield(b, err) {
				return
			}
			from = next
		}
	}
}

// nextAnyDepth finds the next block at or after from; next is -1 when none.
func (x *Extractor) nextAnyDepth(buf []byte, from int, key string) (Block, int, error) {
	for i := range x.syntax.Walk(buf, from, len(buf)) {
		name, open, ok := x.keyAt(buf, i, len(buf), key)
		if !ok {
			continue
		}
		closeAt, err := x.syntax.MatchDelimiter(buf, open)
		if err != nil {
			return Block{Key: name, Open: open, Close: tokenizer.NotFound}, lineAfter(buf, open), err
		}
		return Block{Key: name, Open: open, Close: closeAt}, closeAt + 1, nil
	}
	return Block{}, -1, nil
}

// lineAfter returns the offset of the line following the one holding i.
func lineAfter(buf []byte, i int) int {
	if n := bytes.IndexByte(buf[i:], '\n'); n >= 0 {
		return i + n + 1
	}
	return len(buf)
}

// keyAt reports whether `key = {` starts at i and returns the key and the
// offset of the opening delimiter.
func (x *Extractor) keyAt(buf []byte, i, to int, key string) (string, int, bool) {
	if i > 0 && isIdent(buf[i-1]) {
		return "", 0, false
	}
	var name string
	if key == AnyKey {
		if !isIdentStart(buf[i]) {
			return "", 0, false
		}
		j := i
		for j < to && isIdent(buf[j]) {
			j++
		}
		name = string(buf[i:j])
	} else {
		if !bytes.HasPrefix(buf[i:to], []byte(key)) {
			return "", 0, false
		}
		name = key
	}

	j := i + len(name)
	if j < to && isIdent(buf[j]) {
		return "", 0, false
	}
	j = skipSpace(buf, j, to)
	if j >= to || buf[j] != '=' {
		return "", 0, false
	}
	j = skipSpace(buf, j+1, to)
	if j >= to || buf[j] != x.syntax.Open {
		return "", 0, false
	}
	return name, j, true
}

func skipSpace(buf []byte, i, to int) int {
	for i < to {
		switch buf[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return i
		}
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isIdent(c byte) bool {
	return isIdentStart(c) || '0' <= c && c <= '9'
}
