package tokenizer

import (
	"fmt"
	"strings"

	"script-translator/internal/errs"
	"script-translator/internal/span"
)

// MaxLevel bounds the long-bracket level search of SafeLevel.
const MaxLevel = 32

// Kind discriminates literal forms.
type Kind int

const (
	Quoted Kind = iota + 1
	LongBracket
)

func (k Kind) String() string {
	switch k {
	case Quoted:
		return "quoted"
	case LongBracket:
		return "long"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// LongStyle records how the interior of a long-bracket literal was shaped.
type LongStyle int

const (
	// Plain interiors are used verbatim, without escape processing.
	Plain LongStyle = iota
	// Wrapped interiors hold exactly one quoted string.
	Wrapped
	// LeadingQuote interiors open with a quote that is not closed by the
	// same quoted string.
	LeadingQuote
)

func (s LongStyle) String() string {
	switch s {
	case Plain:
		return "plain"
	case Wrapped:
		return "wrapped"
	case LeadingQuote:
		return "leading_quote"
	default:
		return fmt.Sprintf("LongStyle(%d)", int(s))
	}
}

// Literal is everything needed to re-emit a literal in its original shape.
type Literal struct {
	Kind  Kind
	Quote byte // Quoted only

	// Long bracket only.
	Level int
	Style LongStyle
	Lead  string // Raw bytes before the inner quote
	Trail string // Raw bytes after the inner closing quote (Wrapped)
}

// Token is one string literal found by Syntax.Tokens.
type Token struct {
	Literal
	Span span.Span
	Text string // Editable text: delimiters stripped, escapes resolved
}

// Unescape resolves \\, \", \', \r and \n. Any other escape is kept as is.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\\', '"', '\'':
			b.WriteByte(s[i])
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Escape escapes backslash, quote, CR and LF for a literal delimited by quote.
func Escape(s string, quote byte) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Encode renders text as a literal shaped like lit.
//
// Long-bracket literals keep their level unless the new interior contains the
// closing sequence, in which case the level is raised until it does not.
func Encode(text string, lit Literal) (string, error) {
	switch lit.Kind {
	case Quoted:
		q := lit.Quote
		if q == 0 {
			q = '"'
		}
		return string(q) + Escape(text, q) + string(q), nil
	case LongBracket:
		var inner string
		switch lit.Style {
		case Wrapped:
			inner = lit.Lead + `"` + Escape(text, '"') + `"` + lit.Trail
		case LeadingQuote:
			inner = lit.Lead + `"` + Escape(text, '"')
		default:
			inner = text
		}
		level, err := SafeLevel(inner, lit.Level)
		if err != nil {
			return "", err
		}
		return string(openBracket(level)) + inner + string(closeBracket(level)), nil
	default:
		return "", fmt.Errorf("encode %v literal: %w", lit.Kind, errs.ErrStructuralMismatch)
	}
}

// SafeLevel returns the smallest level >= from whose closing sequence first
// appears in inner+close exactly at the end, so the literal reads back as inner.
func SafeLevel(inner string, from int) (int, error) {
	for level := max(from, 0); level <= MaxLevel; level++ {
		cl := string(closeBracket(level))
		if strings.Index(inner+cl, cl) == len(inner) {
			return level, nil
		}
	}
	return 0, fmt.Errorf("no long bracket level up to %d: %w", MaxLevel, errs.ErrAmbiguousDelimiter)
}

// classifyLong derives the editable text and style of a long-bracket interior.
func classifyLong(raw []byte) Token {
	s := string(raw)
	l := 0
	for l < len(s) && isSpace(s[l]) {
		l++
	}
	if l == len(s) || s[l] != '"' {
		return Token{Literal: Literal{Kind: LongBracket, Style: Plain}, Text: s}
	}

	r := len(s) - 1
	for r > l && isSpace(s[r]) {
		r--
	}
	if end, ok := quotedEnd(raw, l, len(raw)); ok && end-1 == r {
		return Token{
			Literal: Literal{Kind: LongBracket, Style: Wrapped, Lead: s[:l], Trail: s[r+1:]},
			Text:    Unescape(s[l+1 : r]),
		}
	}
	return Token{
		Literal: Literal{Kind: LongBracket, Style: LeadingQuote, Lead: s[:l]},
		Text:    Unescape(s[l+1:]),
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
