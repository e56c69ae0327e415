package parser

import (
	"bytes"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"script-translator/internal/block"
	"script-translator/internal/errs"
	"script-translator/internal/textutil"
	"script-translator/internal/tokenizer"
)

// ArtemisParser extracts dialogue from Artemis engine .ast scripts.
//
// Each `text = { ... }` table holds one sub-table per language; the strings
// of the first language found in the fallback chain become entries.
type ArtemisParser struct {
	blocks *block.Extractor
}

func NewArtemisParser() *ArtemisParser {
	return &ArtemisParser{blocks: block.New(tokenizer.Artemis)}
}

func (p *ArtemisParser) Name() string         { return "artemis.ast" }
func (p *ArtemisParser) Extensions() []string { return []string{".ast"} }

func (p *ArtemisParser) CanParse(ext string) bool {
	return hasExt(p.Extensions(), ext)
}

func (p *ArtemisParser) Detect(path string, data []byte) float64 {
	if bytes.Contains(data, []byte("astver")) && bytes.Contains(data, []byte("ast =")) && bytes.Contains(data, []byte("block_")) {
		return 0.9
	}
	if p.CanParse(filepath.Ext(path)) {
		return 0.5
	}
	return 0
}

func (p *ArtemisParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	fp := textutil.Fingerprint(data)
	result := &ParseResult{Format: p.Name(), Fingerprint: fp}
	langs := opts.Languages()

	for text, err := range p.blocks.All(data, "text") {
		if err != nil {
			result.Skipped = append(result.Skipped, errs.Skip("", text.Open, text.Open+1, err))
			continue
		}
		in := text.Interior()
		lang, err := p.blocks.FindFirst(data, in.Start, in.End, langs)
		if err != nil {
			if !errors.Is(err, block.ErrNotFound) {
				result.Skipped = append(result.Skipped, errs.Skip("", in.Start, in.End, err))
			}
			continue
		}

		li := lang.Interior()
		for tok := range tokenizer.Artemis.Tokens(data, li.Start, li.End) {
			result.Entries = append(result.Entries, Entry{
				ID:           EntryID(fp, tok.Span),
				Original:     tok.Text,
				Context:      map[string]string{"lang": lang.Key},
				Translatable: true,
				Meta:         tokenMeta(tok),
			})
		}
	}

	if len(result.Skipped) > 0 {
		log.Debug().Int("skipped", len(result.Skipped)).Msg("Artemis blocks skipped")
	}
	return result, nil
}

// Rebuild writes translations back. Translations are trimmed, and a
// whitespace-only translation counts as none.
func (p *ArtemisParser) Rebuild(data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport, error) {
	out, report := rebuildSpans(p.Name(), data, entries, true, encodeLiteral)
	return out, report, nil
}

// encodeLiteral re-emits a string literal in its recorded shape.
func encodeLiteral(e Entry, text string) ([]byte, error) {
	var lit tokenizer.Literal
	switch m := e.Meta.(type) {
	case QuotedMeta:
		lit = m.Literal()
	case LongBracketMeta:
		lit = m.Literal()
	default:
		return nil, errs.ErrStructuralMismatch
	}
	s, err := tokenizer.Encode(text, lit)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
