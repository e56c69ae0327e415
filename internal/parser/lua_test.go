package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-translator/internal/errs"
	"script-translator/internal/textutil"
)

func TestLuaParse(t *testing.T) {
	p := NewLuaParser()
	res := parse(t, p, []byte(luaFixture), Options{Filter: textutil.FilterLetters})

	assert.Equal(t, []string{"Main Menu", "Are you sure?", "yes", "Press any key"}, originals(res.Entries))
	assert.Equal(t, "ShowDialog", res.Entries[1].Context["function"])
	assert.Equal(t, "3", res.Entries[1].Context["line"])
	assert.NotContains(t, res.Entries[0].Context, "function")

	q, ok := res.Entries[2].Meta.(QuotedMeta)
	require.True(t, ok)
	assert.Equal(t, byte('\''), q.Quote)
}

func TestLuaFilter(t *testing.T) {
	p := NewLuaParser()
	src := []byte(`print("hello", "こんにちは", "123")`)

	assert.Len(t, parse(t, p, src, Options{Filter: textutil.FilterAny}).Entries, 3)
	assert.Len(t, parse(t, p, src, Options{Filter: textutil.FilterLetters}).Entries, 2)
	assert.Equal(t, []string{"こんにちは"}, originals(parse(t, p, src, Options{Filter: textutil.FilterCJK}).Entries))
}

func TestLuaRebuildKeepsQuoteStyle(t *testing.T) {
	p := NewLuaParser()
	src := []byte(`msg('it is', "say")`)
	res := parse(t, p, src, Options{})
	require.Len(t, res.Entries, 2)

	res.Entries[0].Translation = "it's"
	res.Entries[1].Translation = `say "hi"`
	out, report := rebuild(t, p, src, res.Entries, Options{})
	require.Empty(t, report.Skipped)
	assert.Equal(t, `msg('it\'s', "say \"hi\"")`, string(out))
}

func TestLuaOverlappingEntriesSkipped(t *testing.T) {
	p := NewLuaParser()
	src := []byte(`a = "one" b = "two"`)
	res := parse(t, p, src, Options{})
	require.Len(t, res.Entries, 2)

	dup := res.Entries[0]
	dup.Translation = "uno"
	res.Entries[0].Translation = "eins"
	out, report := rebuild(t, p, src, append(res.Entries, dup), Options{})
	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 1)
	assert.ErrorIs(t, report.Skipped[0], errs.ErrOverlap)
	assert.Contains(t, []string{`a = "eins" b = "two"`, `a = "uno" b = "two"`}, string(out))
}
