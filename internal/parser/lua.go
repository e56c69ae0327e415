package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strconv"

	"script-translator/internal/textutil"
	"script-translator/internal/tokenizer"
)

// LuaParser extracts translatable strings from Lua source files.
type LuaParser struct{}

func NewLuaParser() *LuaParser { return &LuaParser{} }

func (p *LuaParser) Name() string         { return "lua" }
func (p *LuaParser) Extensions() []string { return []string{".lua"} }

func (p *LuaParser) CanParse(ext string) bool {
	return hasExt(p.Extensions(), ext)
}

func (p *LuaParser) Detect(path string, data []byte) float64 {
	if !p.CanParse(filepath.Ext(path)) {
		return 0
	}
	return 0.8
}

// luaFuncPattern captures the function name before a parenthesized argument.
var luaFuncPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_.:]*)\s*\(\s*$`)

func (p *LuaParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	fp := textutil.Fingerprint(data)
	result := &ParseResult{Format: p.Name(), Fingerprint: fp}

	for tok := range tokenizer.Lua.Tokens(data, 0, len(data)) {
		if !opts.Filter.Match(tok.Text) {
			continue
		}

		// Try to extract function context from the code before the string.
		ctx := make(map[string]string)
		lineStart := bytes.LastIndexByte(data[:tok.Span.Start], '\n') + 1
		if m := luaFuncPattern.FindSubmatch(data[lineStart:tok.Span.Start]); m != nil {
			ctx["function"] = string(m[1])
		}
		ctx["line"] = strconv.Itoa(bytes.Count(data[:tok.Span.Start], []byte{'\n'}) + 1)

		result.Entries = append(result.Entries, Entry{
			ID:           EntryID(fp, tok.Span),
			Original:     tok.Text,
			Context:      ctx,
			Translatable: true,
			Meta:         tokenMeta(tok),
		})
	}

	return result, nil
}

func (p *LuaParser) Rebuild(data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport, error) {
	out, report := rebuildSpans(p.Name(), data, entries, false, encodeLiteral)
	return out, report, nil
}
