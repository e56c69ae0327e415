package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"script-translator/internal/span"
	"script-translator/internal/textutil"
)

// TXTParser handles both plain text and tab-separated game data files.
type TXTParser struct{}

func NewTXTParser() *TXTParser { return &TXTParser{} }

func (p *TXTParser) Name() string         { return "txt" }
func (p *TXTParser) Extensions() []string { return []string{".txt", ".tsv"} }

func (p *TXTParser) CanParse(ext string) bool {
	return hasExt(p.Extensions(), ext)
}

func (p *TXTParser) Detect(path string, data []byte) float64 {
	if !p.CanParse(filepath.Ext(path)) {
		return 0
	}
	return 0.6
}

func (p *TXTParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	fp := textutil.Fingerprint(data)
	lines := splitLines(data)

	result := &ParseResult{Format: p.Name(), Fingerprint: fp}
	if detectTSV(data, lines) {
		result.Entries = p.parseTSV(data, lines, fp, opts.Filter)
	} else {
		result.Entries = p.parsePlainText(data, lines, fp, opts.Filter)
	}
	return result, nil
}

// detectTSV checks if the file has consistent tab-separated columns.
func detectTSV(data []byte, lines []line) bool {
	if len(lines) < 2 {
		return false
	}

	tabCounts := make(map[int]int)
	sampleSize := min(len(lines), 20)
	nonEmptyLines := 0

	for _, ln := range lines[:sampleSize] {
		text := data[ln.Start:ln.End]
		if len(bytes.TrimSpace(text)) == 0 {
			continue
		}
		nonEmptyLines++
		if count := bytes.Count(text, []byte{'\t'}); count > 0 {
			tabCounts[count]++
		}
	}

	if nonEmptyLines == 0 {
		return false
	}

	// Find the most common tab count.
	maxCount := 0
	for _, c := range tabCounts {
		maxCount = max(maxCount, c)
	}

	// If >60% of non-empty lines share the same tab count, it's TSV.
	return float64(maxCount)/float64(nonEmptyLines) > 0.6
}

func (p *TXTParser) parseTSV(data []byte, lines []line, fp string, filter textutil.Filter) []Entry {
	var entries []Entry
	for _, ln := range lines {
		if len(bytes.TrimSpace(data[ln.Start:ln.End])) == 0 {
			continue
		}

		cols := bytes.Split(data[ln.Start:ln.End], []byte{'\t'})
		start := ln.Start
		for colIdx, col := range cols {
			colSpan := span.New(start, start+len(col))
			start = colSpan.End + 1

			text := string(col)
			if !isTranslatableColumn(text, filter) {
				continue
			}

			ctx := map[string]string{
				"format": "tsv",
				"line":   strconv.Itoa(ln.No),
				"column": strconv.Itoa(colIdx),
			}
			if colIdx > 0 {
				ctx["id"] = string(cols[0])
			}

			entries = append(entries, Entry{
				ID:           EntryID(fp, colSpan),
				Original:     text,
				Context:      ctx,
				Translatable: true,
				Meta:         LineMeta{Span: colSpan, Line: ln.No, Column: colIdx},
			})
		}
	}
	return entries
}

func (p *TXTParser) parsePlainText(data []byte, lines []line, fp string, filter textutil.Filter) []Entry {
	var entries []Entry
	for _, ln := range lines {
		text := trimSpan(data, ln.Start, ln.End)
		trimmed := string(data[text.Start:text.End])
		if !filter.Match(trimmed) {
			continue
		}

		entries = append(entries, Entry{
			ID:       EntryID(fp, text),
			Original: trimmed,
			Context: map[string]string{
				"format": "txt",
				"line":   strconv.Itoa(ln.No),
			},
			Translatable: true,
			Meta:         LineMeta{Span: text, Line: ln.No, Column: -1},
		})
	}
	return entries
}

// identifierPattern matches codes and keys that are not human-readable text.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.:/\-]+$`)

// isTranslatableColumn determines if a TSV column contains human-readable text
// that should be translated.
func isTranslatableColumn(col string, filter textutil.Filter) bool {
	if !filter.Match(col) || identifierPattern.MatchString(strings.TrimSpace(col)) {
		return false
	}
	// Minimum length check: very short strings are likely codes.
	return utf8.RuneCountInString(col) >= 2
}

func (p *TXTParser) Rebuild(data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport, error) {
	out, report := rebuildSpans(p.Name(), data, entries, false, func(e Entry, text string) ([]byte, error) {
		forbidden := "\r\n"
		if m, ok := e.Meta.(LineMeta); ok && m.Column >= 0 {
			forbidden += "\t"
		}
		return encodeInline(forbidden)(e, text)
	})
	return out, report, nil
}
