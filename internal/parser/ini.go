package parser

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"script-translator/internal/textutil"
)

// INIParser extracts translatable strings from INI/config files.
type INIParser struct{}

func NewINIParser() *INIParser { return &INIParser{} }

func (p *INIParser) Name() string         { return "ini" }
func (p *INIParser) Extensions() []string { return []string{".ini"} }

func (p *INIParser) CanParse(ext string) bool {
	return hasExt(p.Extensions(), ext)
}

func (p *INIParser) Detect(path string, data []byte) float64 {
	if !p.CanParse(filepath.Ext(path)) {
		return 0
	}
	return 0.8
}

func (p *INIParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	fp := textutil.Fingerprint(data)
	result := &ParseResult{Format: p.Name(), Fingerprint: fp}

	currentSection := ""
	for _, ln := range splitLines(data) {
		trimmed := strings.TrimSpace(ln.text(data))

		// Skip empty lines and comments.
		if trimmed == "" || strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Section header.
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			currentSection = trimmed[1 : len(trimmed)-1]
			continue
		}

		// Key=Value pair.
		eqIdx := bytes.IndexByte(data[ln.Start:ln.End], '=')
		if eqIdx < 0 {
			continue
		}
		eq := ln.Start + eqIdx
		value := trimSpan(data, eq+1, ln.End)
		text := string(data[value.Start:value.End])
		if !opts.Filter.Match(text) {
			continue
		}

		result.Entries = append(result.Entries, Entry{
			ID:       EntryID(fp, value),
			Original: text,
			Context: map[string]string{
				"section": currentSection,
				"key":     strings.TrimSpace(string(data[ln.Start:eq])),
				"line":    strconv.Itoa(ln.No),
			},
			Translatable: true,
			Meta:         LineMeta{Span: value, Line: ln.No, Column: -1},
		})
	}

	return result, nil
}

func (p *INIParser) Rebuild(data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport, error) {
	out, report := rebuildSpans(p.Name(), data, entries, false, encodeInline("\r\n"))
	return out, report, nil
}
