package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"script-translator/internal/span"
	"script-translator/internal/textutil"
)

// MusicaParser extracts `.message` lines from Musica engine .sc scripts.
type MusicaParser struct{}

func NewMusicaParser() *MusicaParser { return &MusicaParser{} }

func (p *MusicaParser) Name() string         { return "musica.sc" }
func (p *MusicaParser) Extensions() []string { return []string{".sc"} }

func (p *MusicaParser) CanParse(ext string) bool {
	return hasExt(p.Extensions(), ext)
}

func (p *MusicaParser) Detect(path string, data []byte) float64 {
	if p.CanParse(filepath.Ext(path)) {
		return 0.9
	}
	return 0
}

var (
	// Groups: channel prefix, message number, rest of the line.
	scMessage = regexp.MustCompile(`^\s*(?:(\[[^\]]+\]\.)|\.)message\s+(\d+)\s+(.*)$`)
	// Trailing control sequences such as \a, \v or \w2, with trailing blanks.
	scControls    = regexp.MustCompile(`(?:\\[A-Za-z]+[0-9]*)+\s*$`)
	scControlOnly = regexp.MustCompile(`^\s*(?:\\[A-Za-z]+[0-9]*)+\s*$`)
)

func (p *MusicaParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	fp := textutil.Fingerprint(data)
	result := &ParseResult{Format: p.Name(), Fingerprint: fp}

	for _, ln := range splitLines(data) {
		raw := data[ln.Start:ln.End]
		s := bytes.TrimLeft(raw, " \t")
		if bytes.HasPrefix(s, []byte(";")) || bytes.HasPrefix(s, []byte("//")) {
			continue
		}

		m := scMessage.FindSubmatchIndex(raw)
		if m == nil {
			continue
		}
		rest := string(raw[m[6]:m[7]])

		// The speaker token, when present, is not part of the editable body.
		bodyStart := m[6]
		speaker := ""
		if sp, skip, ok := scSpeaker(rest); ok {
			speaker = sp
			bodyStart += skip
		}

		body := string(raw[bodyStart:])
		if loc := scControls.FindStringIndex(body); loc != nil {
			body = body[:loc[0]]
		}
		if strings.TrimSpace(body) == "" || scControlOnly.MatchString(body) {
			continue
		}

		sp := span.New(ln.Start+bodyStart, ln.Start+bodyStart+len(body))
		ctx := map[string]string{
			"line":  strconv.Itoa(ln.No),
			"msgno": string(raw[m[4]:m[5]]),
		}
		if m[2] >= 0 {
			ctx["channel"] = string(raw[m[2]:m[3]])
		}

		result.Entries = append(result.Entries, Entry{
			ID:           EntryID(fp, sp),
			Original:     body,
			Speaker:      speaker,
			Context:      ctx,
			Translatable: true,
			Meta:         LineMeta{Span: sp, Line: ln.No, Column: -1},
		})
	}
	return result, nil
}

// scSpeaker reads "<id> <speaker> text..." lines, where the id contains a
// dash and a digit. It returns the speaker without a leading '#' and the
// offset in rest where the text begins.
func scSpeaker(rest string) (string, int, bool) {
	fields := strings.Fields(rest)
	if len(fields) < 3 || !scIDLike(fields[0]) {
		return "", 0, false
	}
	i := strings.Index(rest, fields[0]) + len(fields[0])
	i += strings.Index(rest[i:], fields[1]) + len(fields[1])
	for i < len(rest) && unicode.IsSpace(rune(rest[i])) {
		i++
	}
	return strings.TrimPrefix(fields[1], "#"), i, true
}

func scIDLike(tok string) bool {
	return strings.Contains(tok, "-") && strings.ContainsAny(tok, "0123456789")
}

// Rebuild writes translations exactly as given.
func (p *MusicaParser) Rebuild(data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport, error) {
	out, report := rebuildSpans(p.Name(), data, entries, false, encodeInline("\r\n"))
	return out, report, nil
}
