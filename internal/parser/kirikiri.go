package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"script-translator/internal/span"
	"script-translator/internal/textutil"
)

// KirikiriParser extracts dialogue lines from Kirikiri/KAG .ks scenarios.
//
// A dialogue line is text terminated by a [cr] tag. Only the text before the
// first [cr] is editable; the tag and anything after it stay untouched.
type KirikiriParser struct{}

func NewKirikiriParser() *KirikiriParser { return &KirikiriParser{} }

func (p *KirikiriParser) Name() string         { return "kirikiri.ks" }
func (p *KirikiriParser) Extensions() []string { return []string{".ks"} }

func (p *KirikiriParser) CanParse(ext string) bool {
	return hasExt(p.Extensions(), ext)
}

// ksDetectLines bounds the heuristic to the head of the file.
const ksDetectLines = 160

func (p *KirikiriParser) Detect(path string, data []byte) float64 {
	if p.CanParse(filepath.Ext(path)) {
		return 0.95
	}

	head := data
	if lines := splitLines(data); len(lines) > ksDetectLines {
		head = data[:lines[ksDetectLines-1].End]
	}
	score := 0.0
	if bytes.Contains(head, []byte("[cr]")) {
		score += 0.25
	}
	if bytes.Contains(head, []byte("[cm]")) {
		score += 0.25
	}
	if bytes.Contains(head, []byte("[P_NAME")) || bytes.Contains(head, []byte("[P_FACE")) {
		score += 0.25
	}
	if bytes.Contains(head, []byte("[playbgm")) || bytes.Contains(head, []byte("[playse")) || bytes.Contains(head, []byte("[jump")) {
		score += 0.15
	}
	return min(0.9, score)
}

var (
	ksSpeaker = regexp.MustCompile(`(?i)\[\s*P_NAME\b[^\]]*?\bs_cn\s*=\s*"([^"]+)"[^\]]*\]`)
	ksTagOnly = regexp.MustCompile(`^\s*(?:\[[^\]]+\]\s*)+$`)
	ksAnyTag  = regexp.MustCompile(`\[[^\]]+\]`)
)

var ksCR = []byte("[cr]")

func (p *KirikiriParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	fp := textutil.Fingerprint(data)
	result := &ParseResult{Format: p.Name(), Fingerprint: fp}

	speaker := ""
	for _, ln := range splitLines(data) {
		raw := data[ln.Start:ln.End]

		// Speaker tags set the speaker of the following lines.
		if m := ksSpeaker.FindSubmatch(raw); m != nil {
			speaker = strings.TrimSpace(string(m[1]))
			continue
		}
		if ksStructural(raw) {
			continue
		}

		cr := bytes.Index(raw, ksCR)
		if cr < 0 {
			continue
		}
		body := span.New(ln.Start+ksPrefixLen(raw[:cr]), ln.Start+cr)
		text := string(data[body.Start:body.End])
		if !ksTranslatable(text) {
			continue
		}

		result.Entries = append(result.Entries, Entry{
			ID:           EntryID(fp, body),
			Original:     text,
			Speaker:      speaker,
			Context:      map[string]string{"line": strconv.Itoa(ln.No)},
			Translatable: true,
			Meta:         LineMeta{Span: body, Line: ln.No, Column: -1},
		})
	}
	return result, nil
}

// ksStructural reports comment, label and command lines. A line starting
// with ";;" is dialect text, not a comment.
func ksStructural(raw []byte) bool {
	t := bytes.TrimLeft(raw, " \t")
	switch {
	case len(t) == 0:
		return true
	case t[0] == ';':
		return !bytes.HasPrefix(t, []byte(";;"))
	case t[0] == '*', t[0] == '@':
		return true
	}
	return false
}

// ksPrefixLen returns the length of leading blanks plus an optional ";;"
// marker and the blanks after it.
func ksPrefixLen(beforeCR []byte) int {
	i := 0
	for i < len(beforeCR) && (beforeCR[i] == ' ' || beforeCR[i] == '\t') {
		i++
	}
	if bytes.HasPrefix(beforeCR[i:], []byte(";;")) {
		i += 2
		for i < len(beforeCR) && (beforeCR[i] == ' ' || beforeCR[i] == '\t') {
			i++
		}
	}
	return i
}

func ksTranslatable(body string) bool {
	if strings.TrimSpace(body) == "" || ksTagOnly.MatchString(body) {
		return false
	}
	// If body becomes empty after removing tags it is not real text.
	return strings.TrimSpace(ksAnyTag.ReplaceAllString(body, "")) != ""
}

// Rebuild writes translations exactly as given.
func (p *KirikiriParser) Rebuild(data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport, error) {
	out, report := rebuildSpans(p.Name(), data, entries, false, encodeInline("\r\n"))
	return out, report, nil
}
