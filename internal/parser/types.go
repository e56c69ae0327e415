package parser

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"script-translator/internal/errs"
	"script-translator/internal/span"
	"script-translator/internal/textutil"
	"script-translator/internal/tokenizer"
)

// Entry is one unit of translatable text plus what is needed to write it back.
type Entry struct {
	// ID is "<fingerprint>:<start>:<end>", stable for identical file content.
	ID string
	// Original is the text as shown to a translator.
	Original string
	// Translation is empty until a translation is supplied.
	Translation string
	// Speaker is the character name, when the format records one.
	Speaker string
	// Context holds additional context (function name, section, etc.)
	Context map[string]string
	// Translatable is false for text that can be read but not written back.
	Translatable bool
	// Meta locates the entry in the original buffer.
	Meta Meta
}

// Meta is the round-trip metadata of an entry. It is one of QuotedMeta,
// LongBracketMeta, BinaryBlockMeta or LineMeta.
type Meta interface {
	Bounds() span.Span
	meta()
}

// QuotedMeta describes a quoted string literal.
type QuotedMeta struct {
	Span  span.Span
	Quote byte
}

// LongBracketMeta describes a [=[ ... ]=] literal.
type LongBracketMeta struct {
	Span  span.Span
	Level int
	Style tokenizer.LongStyle
	Lead  string
	Trail string
}

// BinaryBlockMeta describes a length-prefixed binary record.
type BinaryBlockMeta struct {
	Span  span.Span // Length field and payload
	Codec string
}

// LineMeta describes verbatim text on one line of a line-oriented format.
type LineMeta struct {
	Span   span.Span
	Line   int // 1-based
	Column int // 0-based TSV column, -1 if not applicable
}

func (m QuotedMeta) Bounds() span.Span      { return m.Span }
func (m LongBracketMeta) Bounds() span.Span { return m.Span }
func (m BinaryBlockMeta) Bounds() span.Span { return m.Span }
func (m LineMeta) Bounds() span.Span        { return m.Span }

func (QuotedMeta) meta()      {}
func (LongBracketMeta) meta() {}
func (BinaryBlockMeta) meta() {}
func (LineMeta) meta()        {}

// Literal converts token metadata back into the tokenizer's literal shape.
func (m QuotedMeta) Literal() tokenizer.Literal {
	return tokenizer.Literal{Kind: tokenizer.Quoted, Quote: m.Quote}
}

// Literal converts token metadata back into the tokenizer's literal shape.
func (m LongBracketMeta) Literal() tokenizer.Literal {
	return tokenizer.Literal{
		Kind:  tokenizer.LongBracket,
		Level: m.Level,
		Style: m.Style,
		Lead:  m.Lead,
		Trail: m.Trail,
	}
}

// tokenMeta records the metadata of a tokenizer literal.
func tokenMeta(tok tokenizer.Token) Meta {
	if tok.Kind == tokenizer.LongBracket {
		return LongBracketMeta{Span: tok.Span, Level: tok.Level, Style: tok.Style, Lead: tok.Lead, Trail: tok.Trail}
	}
	return QuotedMeta{Span: tok.Span, Quote: tok.Quote}
}

// ParseResult holds parsing output for a single file.
type ParseResult struct {
	// FilePath is the path the buffer was read from, if any.
	FilePath string
	// Format is the name of the adapter that produced the entries.
	Format string
	// Fingerprint identifies the parsed buffer content.
	Fingerprint string
	// Entries are in buffer order.
	Entries []Entry
	// Skipped lists regions that could not be parsed.
	Skipped []*errs.SkipError
}

// RebuildReport summarizes a rebuild.
type RebuildReport struct {
	Applied int
	Skipped []*errs.SkipError
}

// Options tunes parsing.
type Options struct {
	// SourceLanguage selects the language section of multi-language formats.
	SourceLanguage string
	// FallbackLanguages are tried in order when SourceLanguage is absent.
	FallbackLanguages []string
	// Filter decides which strings of free-form formats become entries.
	Filter textutil.Filter
}

// DefaultLanguages is the section fallback chain used when none is configured.
var DefaultLanguages = []string{"ja", "*"}

// Languages returns the language keys to try, in order, without duplicates.
func (o Options) Languages() []string {
	var langs []string
	seen := make(map[string]bool)
	for _, l := range append([]string{o.SourceLanguage}, o.FallbackLanguages...) {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		langs = append(langs, l)
	}
	if len(langs) == 0 {
		return DefaultLanguages
	}
	return langs
}

// Parser is the interface for all file format adapters.
type Parser interface {
	// Name is the stable adapter identifier, such as "artemis.ast".
	Name() string
	// Extensions lists the file extensions the adapter claims.
	Extensions() []string
	// CanParse returns true if this parser handles the given file extension.
	CanParse(ext string) bool
	// Detect scores how likely data is in this format, from 0 to 1.
	Detect(path string, data []byte) float64
	// Parse extracts entries from a buffer.
	Parse(data []byte, opts Options) (*ParseResult, error)
	// Rebuild returns a copy of data with the translations of entries applied.
	Rebuild(data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport, error)
}

// ParseFile reads path and parses it. The file is read on every call.
func ParseFile(p Parser, path string, opts Options) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", p.Name(), err)
	}
	res, err := p.Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	res.FilePath = path
	return res, nil
}

// RebuildFile reads path and rebuilds it with entries. The file is read on
// every call, so entries from an older version of the file are detected.
func RebuildFile(p Parser, path string, entries []Entry, opts Options) ([]byte, *RebuildReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s file: %w", p.Name(), err)
	}
	out, report, err := p.Rebuild(data, entries, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild %s: %w", path, err)
	}
	return out, report, nil
}

// EntryID builds the ID of the entry covering s in a buffer with fingerprint fp.
func EntryID(fp string, s span.Span) string {
	return fp + ":" + strconv.Itoa(s.Start) + ":" + strconv.Itoa(s.End)
}

// SplitID is the inverse of EntryID.
func SplitID(id string) (string, span.Span, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 {
		return "", span.Span{}, fmt.Errorf("malformed entry id %q", id)
	}
	start, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", span.Span{}, fmt.Errorf("malformed entry id %q: %w", id, err)
	}
	end, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", span.Span{}, fmt.Errorf("malformed entry id %q: %w", id, err)
	}
	return parts[0], span.New(start, end), nil
}

// hasExt matches an extension against a fixed list, case-insensitively.
func hasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
