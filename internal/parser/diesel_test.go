package parser

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-translator/internal/errs"
)

func TestDieselParse(t *testing.T) {
	p := NewDieselParser()
	data := dieselFixture(t)
	res := parse(t, p, data, Options{})

	assert.Equal(t, []string{"Hello world", "こんにちは"}, originals(res.Entries))
	assert.Equal(t, "utf-8", res.Entries[0].Context["encoding"])
	assert.Equal(t, "36", res.Entries[0].Context["offset"])

	m, ok := res.Entries[1].Meta.(BinaryBlockMeta)
	require.True(t, ok)
	assert.Equal(t, "shift_jis", m.Codec)
}

func TestDieselRebuildPatchesHeader(t *testing.T) {
	p := NewDieselParser()
	data := dieselFixture(t)
	res := parse(t, p, data, Options{})

	res.Entries[0].Translation = "Hi"     // -9 bytes
	res.Entries[1].Translation = "こんばんは!" // +1 byte in Shift_JIS
	out, report := rebuild(t, p, data, res.Entries, Options{})
	require.Empty(t, report.Skipped)
	assert.Equal(t, 2, report.Applied)

	assert.Len(t, out, len(data)-8)
	assert.Equal(t, uint32(992), binary.LittleEndian.Uint32(out[0x8:]))
	assert.Equal(t, uint32(1992), binary.LittleEndian.Uint32(out[0xC:]))

	again := parse(t, p, out, Options{})
	assert.Equal(t, []string{"Hi", "こんばんは!"}, originals(again.Entries))
}

func TestDieselUnencodableSkipsOneBlock(t *testing.T) {
	p := NewDieselParser()
	data := dieselFixture(t)
	res := parse(t, p, data, Options{})

	res.Entries[0].Translation = "Hello there"
	res.Entries[1].Translation = "🙂"
	out, report := rebuild(t, p, data, res.Entries, Options{})
	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, res.Entries[1].ID, report.Skipped[0].ID)
	assert.ErrorIs(t, report.Skipped[0], errs.ErrUnencodable)

	again := parse(t, p, out, Options{})
	assert.Equal(t, []string{"Hello there", "こんにちは"}, originals(again.Entries))
}

func TestDieselLossyBlockNotTranslatable(t *testing.T) {
	p := NewDieselParser()
	data := append(make([]byte, 16), DieselFormat.Magic...)
	data = binary.LittleEndian.AppendUint32(data, 2)
	data = append(data, 0xFF, 0xFE)

	res := parse(t, p, data, Options{})
	require.Len(t, res.Entries, 1)
	assert.False(t, res.Entries[0].Translatable)
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Skipped[0], errs.ErrDecodeFailure)

	res.Entries[0].Translation = "text"
	out, report := rebuild(t, p, data, res.Entries, Options{})
	assert.Equal(t, data, out)
	assert.Zero(t, report.Applied)
}

func TestDieselDetect(t *testing.T) {
	p := NewDieselParser()
	assert.InDelta(t, 0.9, p.Detect("a.bin", dieselFixture(t)), 1e-9)
	assert.Zero(t, p.Detect("a.nut", make([]byte, 64)))

	late := append(make([]byte, dieselDetectWindow), DieselFormat.Magic...)
	assert.Zero(t, p.Detect("a.nut", late))
}
