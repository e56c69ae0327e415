// Package tokenizer walks brace-structured script text while keeping track of
// which bytes belong to string literals.
//
// Two literal forms are understood: quoted strings, where a backslash escapes
// the following byte, and long-bracket strings, which open with '[', zero or
// more '=' and '[' and close with ']', the same number of '=' and ']'. Bytes
// inside either form never affect delimiter depth.
package tokenizer

import (
	"bytes"
	"fmt"
	"iter"

	"script-translator/internal/errs"
	"script-translator/internal/span"
)

// NotFound is returned by MatchDelimiter when no matching close exists.
const NotFound = -1

// Syntax describes the delimiter and literal rules of one script dialect.
type Syntax struct {
	Open, Close  byte   // Structural delimiters
	Quotes       string // Bytes that open and close quoted strings
	LongBrackets bool   // Whether [=*[ ... ]=*] literals exist
	LineComment  string // Comment introducer, "" when comments are not skipped
}

var (
	// Artemis is the table syntax of Artemis engine .ast scripts.
	Artemis = Syntax{Open: '{', Close: '}', Quotes: `"`, LongBrackets: true}
	// Lua is plain Lua source, including -- and --[[ ]] comments.
	Lua = Syntax{Open: '{', Close: '}', Quotes: `"'`, LongBrackets: true, LineComment: "--"}
)

// MatchDelimiter returns the index of the delimiter closing the one at open.
//
// Literals and comments are skipped verbatim. An unterminated quoted string,
// or a buffer that ends before depth returns to zero, yields NotFound and an
// error wrapping errs.ErrStructuralMismatch.
func (s Syntax) MatchDelimiter(buf []byte, open int) (int, error) {
	if open < 0 || open >= len(buf) || buf[open] != s.Open {
		return NotFound, fmt.Errorf("no %q at %d: %w", s.Open, open, errs.ErrStructuralMismatch)
	}

	depth := 0
	for i := open; i < len(buf); {
		next, ok, err := s.skipLiteral(buf, i, len(buf))
		if err != nil {
			return NotFound, err
		}
		if ok {
			i = next
			continue
		}
		switch buf[i] {
		case s.Open:
			depth++
		case s.Close:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return NotFound, fmt.Errorf("unmatched %q at %d: %w", s.Open, open, errs.ErrStructuralMismatch)
}

// Walk yields every structural byte offset in buf[from:to] together with the
// delimiter depth in effect before that byte, relative to from. Literals and
// comments are not yielded. Walking stops at an unterminated quoted string.
func (s Syntax) Walk(buf []byte, from, to int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		depth := 0
		for i := from; i < to; {
			next, ok, err := s.skipLiteral(buf, i, to)
			if err != nil {
				return
			}
			if ok {
				i = next
				continue
			}
			if !yield(i, depth) {
				return
			}
			switch buf[i] {
			case s.Open:
				depth++
			case s.Close:
				depth--
			}
			i++
		}
	}
}

// Depth returns the net delimiter depth of buf[from:to].
func (s Syntax) Depth(buf []byte, from, to int) (int, error) {
	depth := 0
	for i := from; i < to; {
		next, ok, err := s.skipLiteral(buf, i, to)
		if err != nil {
			return 0, err
		}
		if ok {
			i = next
			continue
		}
		switch buf[i] {
		case s.Open:
			depth++
		case s.Close:
			depth--
		}
		i++
	}
	return depth, nil
}

// Tokens yields the string literals found in buf[from:to] from left to right.
// Spans are absolute offsets into buf. Iteration ends at the first
// unterminated quoted string.
func (s Syntax) Tokens(buf []byte, from, to int) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for i := from; i < to; {
			if n := s.commentEnd(buf, i, to); n > i {
				i = n
				continue
			}
			c := buf[i]
			if s.LongBrackets && c == '[' {
				if end, level, ok := longBracketEnd(buf, i, to); ok {
					raw := buf[i+level+2 : end-level-2]
					tok := classifyLong(raw)
					tok.Span = span.New(i, end)
					tok.Level = level
					if !yield(tok) {
						return
					}
					i = end
					continue
				}
			}
			if s.isQuote(c) {
				end, ok := quotedEnd(buf, i, to)
				if !ok {
					return
				}
				tok := Token{
					Span: span.New(i, end),
					Text: Unescape(string(buf[i+1 : end-1])),
					Literal: Literal{
						Kind:  Quoted,
						Quote: c,
					},
				}
				if !yield(tok) {
					return
				}
				i = end
				continue
			}
			i++
		}
	}
}

func (s Syntax) isQuote(c byte) bool {
	return bytes.IndexByte([]byte(s.Quotes), c) >= 0
}

// skipLiteral reports the end of a literal or comment starting at i.
func (s Syntax) skipLiteral(buf []byte, i, limit int) (int, bool, error) {
	if n := s.commentEnd(buf, i, limit); n > i {
		return n, true, nil
	}
	c := buf[i]
	if s.LongBrackets && c == '[' {
		if end, _, ok := longBracketEnd(buf, i, limit); ok {
			return end, true, nil
		}
		return i, false, nil
	}
	if s.isQuote(c) {
		end, ok := quotedEnd(buf, i, limit)
		if !ok {
			return i, false, fmt.Errorf("unterminated string at %d: %w", i, errs.ErrStructuralMismatch)
		}
		return end, true, nil
	}
	return i, false, nil
}

// commentEnd returns the offset just past a comment starting at i, or i.
func (s Syntax) commentEnd(buf []byte, i, limit int) int {
	if s.LineComment == "" || !bytes.HasPrefix(buf[i:limit], []byte(s.LineComment)) {
		return i
	}
	body := i + len(s.LineComment)
	if s.LongBrackets && body < limit && buf[body] == '[' {
		if end, _, ok := longBracketEnd(buf, body, limit); ok {
			return end
		}
	}
	if nl := bytes.IndexByte(buf[body:limit], '\n'); nl >= 0 {
		return body + nl
	}
	return limit
}

// longOpenLevel returns the '=' count of a long-bracket opener at i.
func longOpenLevel(buf []byte, i, limit int) (int, bool) {
	if i >= limit || buf[i] != '[' {
		return 0, false
	}
	j := i + 1
	for j < limit && buf[j] == '=' {
		j++
	}
	if j >= limit || buf[j] != '[' {
		return 0, false
	}
	return j - i - 1, true
}

// longBracketEnd finds the close matching the long-bracket opener at i and
// returns the offset just past it along with the bracket level.
func longBracketEnd(buf []byte, i, limit int) (int, int, bool) {
	level, ok := longOpenLevel(buf, i, limit)
	if !ok {
		return 0, 0, false
	}
	contentStart := i + level + 2
	k := bytes.Index(buf[contentStart:limit], closeBracket(level))
	if k < 0 {
		return 0, 0, false
	}
	return contentStart + k + level + 2, level, true
}

// quotedEnd returns the offset just past the quoted string opening at i.
func quotedEnd(buf []byte, i, limit int) (int, bool) {
	q := buf[i]
	for j := i + 1; j < limit; j++ {
		switch buf[j] {
		case '\\':
			j++
		case q:
			return j + 1, true
		}
	}
	return 0, false
}

func openBracket(level int) []byte {
	return append(append([]byte{'['}, bytes.Repeat([]byte{'='}, level)...), '[')
}

func closeBracket(level int) []byte {
	return append(append([]byte{']'}, bytes.Repeat([]byte{'='}, level)...), ']')
}
