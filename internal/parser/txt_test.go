package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-translator/internal/errs"
	"script-translator/internal/textutil"
)

func TestTXTDetectsTSV(t *testing.T) {
	p := NewTXTParser()
	res := parse(t, p, []byte(tsvFixture), Options{Filter: textutil.FilterLetters})

	assert.Equal(t, []string{"Wooden Sword", "A plain sword.", "Blocks attacks."}, originals(res.Entries))
	assert.Equal(t, "item_01", res.Entries[0].Context["id"])
	assert.Equal(t, "tsv", res.Entries[0].Context["format"])

	m, ok := res.Entries[1].Meta.(LineMeta)
	require.True(t, ok)
	assert.Equal(t, 2, m.Line)
	assert.Equal(t, 2, m.Column)
}

func TestTXTRejectsSeparatorsInTranslation(t *testing.T) {
	p := NewTXTParser()
	data := []byte(tsvFixture)
	res := parse(t, p, data, Options{Filter: textutil.FilterLetters})

	res.Entries[0].Translation = "two\tcolumns"
	res.Entries[1].Translation = "two\nlines"
	res.Entries[2].Translation = "Stops hits."
	out, report := rebuild(t, p, data, res.Entries, Options{})

	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 2)
	for _, s := range report.Skipped {
		assert.ErrorIs(t, s, errs.ErrUnencodable)
	}
	assert.Contains(t, string(out), "item_02\tShield\tStops hits.\n")
}

func TestTXTPlainLines(t *testing.T) {
	p := NewTXTParser()
	data := []byte(plainFixture)
	res := parse(t, p, data, Options{Filter: textutil.FilterLetters})
	assert.Equal(t, []string{"First line", "Second line"}, originals(res.Entries))

	res.Entries[1].Translation = "Zweite Zeile"
	out, _ := rebuild(t, p, data, res.Entries, Options{})
	assert.Equal(t, "  First line  \n\n12345\nZweite Zeile\r\n", string(out))
}

func TestINIParse(t *testing.T) {
	p := NewINIParser()
	data := []byte(iniFixture)
	res := parse(t, p, data, Options{Filter: textutil.FilterLetters})

	require.Len(t, res.Entries, 2)
	assert.Equal(t, "Start Game", res.Entries[0].Original)
	assert.Equal(t, map[string]string{"section": "ui", "key": "title", "line": "3"}, res.Entries[0].Context)
	assert.Equal(t, "credits", res.Entries[1].Context["section"])

	res.Entries[1].Translation = "Danke"
	out, _ := rebuild(t, p, data, res.Entries, Options{})
	assert.Contains(t, string(out), "thanks=Danke\n")
	assert.Contains(t, string(out), "title = Start Game\n")
}
