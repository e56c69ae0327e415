package tokenizer

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-translator/internal/errs"
)

func TestEscapeRoundTrip(t *testing.T) {
	for _, s := range []string{
		"",
		"plain",
		`back\slash`,
		`"quoted"`,
		"line\nbreak\r\n",
		`trailing\`,
		`\n literal`,
	} {
		assert.Equal(t, s, Unescape(Escape(s, '"')), "round trip of %q", s)
		assert.Equal(t, s, Unescape(Escape(s, '\'')), "round trip of %q", s)
	}
}

func TestUnescapeKeepsUnknown(t *testing.T) {
	assert.Equal(t, `tab\there`, Unescape(`tab\there`))
	assert.Equal(t, `end\`, Unescape(`end\`))
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		text string
		lit  Literal
		want string
	}{
		{"quoted", `say "hi"`, Literal{Kind: Quoted, Quote: '"'}, `"say \"hi\""`},
		{"quoted default quote", "a\nb", Literal{Kind: Quoted}, `"a\nb"`},
		{"single quoted", `it's`, Literal{Kind: Quoted, Quote: '\''}, `'it\'s'`},
		{
			"wrapped keeps level and padding",
			"oi",
			Literal{Kind: LongBracket, Style: Wrapped, Level: 1, Lead: " ", Trail: " "},
			`[=[ "oi" ]=]`,
		},
		{
			"leading quote",
			`a"b`,
			Literal{Kind: LongBracket, Style: LeadingQuote, Lead: "\n"},
			"[[\n\"a\\\"b]]",
		},
		{
			"plain collision escalates",
			"x ]=] y",
			Literal{Kind: LongBracket, Style: Plain, Level: 1},
			"[==[x ]=] y]==]",
		},
		{
			"plain trailing bracket",
			"list[1]",
			Literal{Kind: LongBracket, Style: Plain},
			"[=[list[1]]=]",
		},
		{
			"plain no escapes",
			`raw\n`,
			Literal{Kind: LongBracket, Style: Plain},
			`[[raw\n]]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.text, tt.lit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeReadsBack(t *testing.T) {
	lits := []Literal{
		{Kind: Quoted, Quote: '"'},
		{Kind: LongBracket, Style: Wrapped, Lead: " ", Trail: "\n"},
		{Kind: LongBracket, Style: LeadingQuote, Lead: "  "},
		{Kind: LongBracket, Style: Plain},
	}
	texts := []string{"hello", "with ]] and ]=] inside", "trailing ]", `q"u\o"te`, "multi\nline"}

	for _, lit := range lits {
		for _, text := range texts {
			if lit.Style == Plain && lit.Kind == LongBracket && text == `q"u\o"te` {
				// Plain interiors starting with a quote would reclassify.
				continue
			}
			enc, err := Encode(text, lit)
			require.NoError(t, err)

			toks := slices.Collect(Artemis.Tokens([]byte(enc), 0, len(enc)))
			require.Len(t, toks, 1, "encoded %q", enc)
			assert.Equal(t, text, toks[0].Text, "encoded %q", enc)
			assert.Equal(t, lit.Kind, toks[0].Kind)
			if lit.Kind == LongBracket {
				assert.Equal(t, lit.Style, toks[0].Style, "encoded %q", enc)
			}
		}
	}
}

func TestSafeLevel(t *testing.T) {
	level, err := SafeLevel("no brackets", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	level, err = SafeLevel("]] ]=]", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, level)

	level, err = SafeLevel("fine", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, level)

	inner := ""
	for l := 0; l <= MaxLevel; l++ {
		inner += string(closeBracket(l))
	}
	_, err = SafeLevel(inner, 0)
	assert.ErrorIs(t, err, errs.ErrAmbiguousDelimiter)
}

func TestEncodeUnknownKind(t *testing.T) {
	_, err := Encode("x", Literal{})
	assert.Error(t, err)
}
