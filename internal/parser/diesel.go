package parser

import (
	"bytes"
	"strconv"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"

	"script-translator/internal/errs"
	"script-translator/internal/strtable"
	"script-translator/internal/textutil"
)

// DieselFormat is the string table layout of Diesel engine .nut files.
var DieselFormat = strtable.Format{
	Magic:        []byte{0x10, 0x00, 0x00, 0x08},
	MaxPayload:   1 << 20,
	HeaderFields: []int{0x8, 0xC},
	Codecs: []strtable.Codec{
		{Name: "utf-8", Encoding: unicode.UTF8},
		{Name: "shift_jis", Encoding: japanese.ShiftJIS},
	},
	Accept: func(payload []byte) bool {
		// Control bytes below newline mark binary data, not text.
		for _, c := range payload {
			if c < 0x0A {
				return false
			}
		}
		return true
	},
}

// dieselDetectWindow is how much of the file Detect looks at.
const dieselDetectWindow = 4096

// DieselParser extracts strings from compiled Diesel engine .nut scripts.
type DieselParser struct {
	format strtable.Format
}

func NewDieselParser() *DieselParser { return &DieselParser{format: DieselFormat} }

func (p *DieselParser) Name() string         { return "diesel.nut" }
func (p *DieselParser) Extensions() []string { return []string{".nut"} }

func (p *DieselParser) CanParse(ext string) bool {
	return hasExt(p.Extensions(), ext)
}

func (p *DieselParser) Detect(path string, data []byte) float64 {
	if bytes.Contains(data[:min(len(data), dieselDetectWindow)], p.format.Magic) {
		return 0.9
	}
	return 0
}

// Parse lists every record. Records no codec decodes cleanly are reported
// but marked not translatable.
func (p *DieselParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	fp := textutil.Fingerprint(data)
	result := &ParseResult{Format: p.Name(), Fingerprint: fp}

	for _, b := range p.format.Scan(data) {
		sp := b.Span()
		id := EntryID(fp, sp)
		if b.Lossy {
			result.Skipped = append(result.Skipped, errs.Skip(id, sp.Start, sp.End, errs.ErrDecodeFailure))
		}
		result.Entries = append(result.Entries, Entry{
			ID:           id,
			Original:     b.Text,
			Context:      map[string]string{"offset": strconv.Itoa(b.Offset), "encoding": b.Codec},
			Translatable: !b.Lossy,
			Meta:         BinaryBlockMeta{Span: sp, Codec: b.Codec},
		})
	}
	return result, nil
}

func (p *DieselParser) Rebuild(data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport, error) {
	fp := textutil.Fingerprint(data)
	report := &RebuildReport{}

	var edits []strtable.Edit
	for _, e := range entries {
		text, ok := pending(e, false)
		if !ok {
			continue
		}
		sp, err := checkEntry(e, fp, len(data))
		if err == nil {
			if _, isBlock := e.Meta.(BinaryBlockMeta); !isBlock {
				err = errs.ErrStructuralMismatch
			}
		}
		if err != nil {
			report.Skipped = append(report.Skipped, errs.Skip(e.ID, sp.Start, sp.End, err))
			continue
		}
		edits = append(edits, strtable.Edit{ID: e.ID, Offset: sp.Start, Text: text})
	}

	out, skipped := p.format.Rebuild(data, edits)
	failed := 0
	for _, s := range skipped {
		if s.ID != "" {
			failed++
		}
	}
	report.Skipped = append(report.Skipped, skipped...)
	report.Applied = len(edits) - failed
	return out, report, nil
}
