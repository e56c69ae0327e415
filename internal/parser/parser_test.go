package parser

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"script-translator/internal/errs"
	"script-translator/internal/span"
	"script-translator/internal/textutil"
)

const artemisFixture = `astver = 2.0
ast = {
	block_00000 = {
		{"bg", file="bg01"},
		text = {
			ja = {
				{ name = {"Hero"}, "こんにちは", [=[ "wrapped" ]=] },
			},
			en = { "Hello" },
		},
	},
	block_00001 = {
		text = { ja = { "second \"quoted\" line\\n" } },
	},
	block_00002 = {
		text = { en = { "english only" } },
	},
}
`

const luaFixture = `-- "commented out"
local title = "Main Menu"
ShowDialog("Are you sure?", 'yes')
--[[ "block comment" ]]
local help = [[Press any key]]
local n = "42"
`

const iniFixture = `; settings
[ui]
title = Start Game
empty =
count = 3
[credits]
# comment = not me
thanks=Thank you for playing
`

const tsvFixture = "id\tname\tdesc\n" +
	"item_01\tWooden Sword\tA plain sword.\n" +
	"item_02\tShield\tBlocks attacks.\n"

const plainFixture = "  First line  \n\n12345\nSecond line\r\n"

const ksFixture = `; comment line
*start|
@bg storage="bg01"
[P_NAME s_cn="Alice"]
Good morning.[cr]
;; Still talking.[cr][l]
[cm]
[r][cr]
Plain narration[cr]
`

const scFixture = `; comment
// another comment
.message 100 Hello there\a
.message 101 vo-001 #Bob How are you?\v\a
[e].message 102 Channel text
.message 103 \a\v
.label end
`

// dieselFixture builds a .nut buffer with one ASCII and one Shift_JIS record.
func dieselFixture(t *testing.T) []byte {
	t.Helper()
	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("こんにちは"))
	require.NoError(t, err)

	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0x8:], 1000)
	binary.LittleEndian.PutUint32(buf[0xC:], 2000)
	for _, payload := range [][]byte{[]byte("Hello world"), sjis} {
		buf = append(buf, DieselFormat.Magic...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
		buf = append(buf, payload...)
		buf = append(buf, 0x00, 0x01)
	}
	return buf
}

type fixture struct {
	parser Parser
	data   []byte
	opts   Options
	count  int
}

func fixtures(t *testing.T) map[string]fixture {
	letters := Options{Filter: textutil.FilterLetters}
	return map[string]fixture{
		"artemis":  {NewArtemisParser(), []byte(artemisFixture), Options{}, 5},
		"lua":      {NewLuaParser(), []byte(luaFixture), letters, 4},
		"ini":      {NewINIParser(), []byte(iniFixture), letters, 2},
		"tsv":      {NewTXTParser(), []byte(tsvFixture), letters, 3},
		"txt":      {NewTXTParser(), []byte(plainFixture), letters, 2},
		"kirikiri": {NewKirikiriParser(), []byte(ksFixture), Options{}, 3},
		"musica":   {NewMusicaParser(), []byte(scFixture), Options{}, 3},
		"diesel":   {NewDieselParser(), dieselFixture(t), Options{}, 2},
	}
}

func parse(t *testing.T, p Parser, data []byte, opts Options) *ParseResult {
	t.Helper()
	res, err := p.Parse(data, opts)
	require.NoError(t, err)
	return res
}

func rebuild(t *testing.T, p Parser, data []byte, entries []Entry, opts Options) ([]byte, *RebuildReport) {
	t.Helper()
	out, report, err := p.Rebuild(data, entries, opts)
	require.NoError(t, err)
	return out, report
}

func translated(entries []Entry, f func(string) string) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Translation = f(e.Original)
		out[i] = e
	}
	return out
}

func TestRoundTripIdentity(t *testing.T) {
	for name, fx := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			res := parse(t, fx.parser, fx.data, fx.opts)
			assert.Len(t, res.Entries, fx.count)
			assert.Equal(t, fx.parser.Name(), res.Format)

			out, report := rebuild(t, fx.parser, fx.data, res.Entries, fx.opts)
			assert.Equal(t, fx.data, out)
			assert.Zero(t, report.Applied)
			assert.Empty(t, report.Skipped)

			out, _ = rebuild(t, fx.parser, fx.data, nil, fx.opts)
			assert.Equal(t, fx.data, out)
		})
	}
}

func TestTranslationReadsBack(t *testing.T) {
	for name, fx := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			res := parse(t, fx.parser, fx.data, fx.opts)
			entries := translated(res.Entries, func(s string) string { return "T:" + s })

			out, report := rebuild(t, fx.parser, fx.data, entries, fx.opts)
			require.Empty(t, report.Skipped)
			assert.Equal(t, len(entries), report.Applied)

			again := parse(t, fx.parser, out, fx.opts)
			require.Len(t, again.Entries, len(entries))
			for i, e := range again.Entries {
				assert.Equal(t, "T:"+res.Entries[i].Original, e.Original)
				assert.Equal(t, res.Entries[i].Speaker, e.Speaker)
			}

			// Rebuilding the output with the same translations changes nothing.
			same := translated(again.Entries, func(s string) string { return s })
			out2, report := rebuild(t, fx.parser, out, same, fx.opts)
			assert.Equal(t, out, out2)
			assert.Zero(t, report.Applied)
		})
	}
}

func TestEntryIDs(t *testing.T) {
	for name, fx := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			res := parse(t, fx.parser, fx.data, fx.opts)
			assert.Equal(t, textutil.Fingerprint(fx.data), res.Fingerprint)

			var set span.Set
			for _, e := range res.Entries {
				fp, sp, err := SplitID(e.ID)
				require.NoError(t, err)
				assert.Equal(t, res.Fingerprint, fp)
				assert.Equal(t, e.Meta.Bounds(), sp)
				require.NoError(t, set.Add(sp), "entries must not overlap")
			}

			// Parsing is deterministic.
			assert.Equal(t, res, parse(t, fx.parser, fx.data, fx.opts))
		})
	}
}

func TestStaleEntriesAreSkipped(t *testing.T) {
	for name, fx := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			res := parse(t, fx.parser, fx.data, fx.opts)
			changed := append([]byte("\n"), fx.data...)

			entries := translated(res.Entries, func(s string) string { return "T:" + s })
			out, report := rebuild(t, fx.parser, changed, entries, fx.opts)
			assert.Equal(t, changed, out)
			assert.Zero(t, report.Applied)
			require.Len(t, report.Skipped, len(entries))
			for _, s := range report.Skipped {
				assert.ErrorIs(t, s, errs.ErrStaleEntry)
				assert.ErrorIs(t, s, errs.ErrOffsetOutOfRange)
			}
		})
	}
}

func TestParseAndRebuildFile(t *testing.T) {
	p := NewKirikiriParser()
	path := t.TempDir() + "/scene.ks"
	require.NoError(t, os.WriteFile(path, []byte(ksFixture), 0o644))

	res, err := ParseFile(p, path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, res.FilePath)

	entries := translated(res.Entries, func(s string) string { return "T:" + s })
	out, report, err := RebuildFile(p, path, entries, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Applied)
	assert.Contains(t, string(out), "T:Good morning.[cr]")

	// The file is read again on every call, so edits on disk are noticed.
	require.NoError(t, os.WriteFile(path, []byte("New line[cr]\n"), 0o644))
	_, report, err = RebuildFile(p, path, entries, Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Applied)

	_, err = ParseFile(p, path+".missing", Options{})
	assert.Error(t, err)
}

func TestSplitID(t *testing.T) {
	fp, sp, err := SplitID(EntryID("abc", span.New(3, 9)))
	require.NoError(t, err)
	assert.Equal(t, "abc", fp)
	assert.Equal(t, span.New(3, 9), sp)

	for _, bad := range []string{"", "a:b", "a:1:x", "a:x:1"} {
		_, _, err := SplitID(bad)
		assert.Error(t, err, bad)
	}
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, DefaultLanguages, Options{}.Languages())
	assert.Equal(t, []string{"en", "ja", "*"}, Options{SourceLanguage: "en", FallbackLanguages: []string{"ja", "en", " ", "*"}}.Languages())
}
