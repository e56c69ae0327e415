package strtable

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"

	"script-translator/internal/errs"
)

var magic = []byte{0x10, 0x00, 0x00, 0x08}

var testFormat = Format{
	Magic:        magic,
	MaxPayload:   1 << 20,
	HeaderFields: []int{0x8, 0xC},
	Codecs: []Codec{
		{Name: "utf-8", Encoding: unicode.UTF8},
		{Name: "shift_jis", Encoding: japanese.ShiftJIS},
	},
	Accept: func(p []byte) bool {
		for _, c := range p {
			if c < 0x0A {
				return false
			}
		}
		return true
	},
}

// record writes magic, length and payload at off, growing buf as needed.
func record(buf []byte, off int, payload []byte) []byte {
	need := off + len(magic) + 4 + len(payload)
	if len(buf) < need {
		buf = append(buf, make([]byte, need-len(buf))...)
	}
	copy(buf[off:], magic)
	binary.LittleEndian.PutUint32(buf[off+4:], uint32(len(payload)))
	copy(buf[off+8:], payload)
	return buf
}

func u32(buf []byte, at int) uint32 {
	return binary.LittleEndian.Uint32(buf[at:])
}

func TestScanAndShrink(t *testing.T) {
	buf := make([]byte, 96)
	binary.LittleEndian.PutUint32(buf[0x8:], 500)
	binary.LittleEndian.PutUint32(buf[0xC:], 1000)
	buf = record(buf, 96, []byte("hello"))
	buf = append(buf, 0xAA, 0xBB)

	blocks := testFormat.Scan(buf)
	require.Len(t, blocks, 1)
	b := blocks[0]
	assert.Equal(t, 100, b.Offset)
	assert.Equal(t, 5, b.Length)
	assert.Equal(t, "hello", b.Text)
	assert.Equal(t, "utf-8", b.Codec)
	assert.False(t, b.Lossy)

	out, skipped := testFormat.Rebuild(buf, []Edit{{ID: "x", Offset: 100, Text: "hi"}})
	require.Empty(t, skipped)
	assert.Len(t, out, len(buf)-3)
	assert.Equal(t, uint32(497), u32(out, 0x8))
	assert.Equal(t, uint32(997), u32(out, 0xC))
	assert.Equal(t, uint32(2), u32(out, 100))
	assert.Equal(t, "hi", string(out[104:106]))
	assert.Equal(t, []byte{0xAA, 0xBB}, out[106:])

	// The input is left untouched.
	assert.Equal(t, uint32(500), u32(buf, 8))
}

func TestRebuildHeaderDiffIsTotal(t *testing.T) {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0x8:], 1000)
	binary.LittleEndian.PutUint32(buf[0xC:], 2000)
	buf = record(buf, 64, []byte("first"))
	buf = record(buf, len(buf)+3, []byte("second one"))

	blocks := testFormat.Scan(buf)
	require.Len(t, blocks, 2)

	out, skipped := testFormat.Rebuild(buf, []Edit{
		{ID: "a", Offset: blocks[0].Offset, Text: "first!!"},    // +2
		{ID: "b", Offset: blocks[1].Offset, Text: "second on"}, // -1
	})
	require.Empty(t, skipped)
	assert.Len(t, out, len(buf)+1)
	assert.Equal(t, uint32(1001), u32(out, 0x8))
	assert.Equal(t, uint32(2001), u32(out, 0xC))

	again := testFormat.Scan(out)
	require.Len(t, again, 2)
	assert.Equal(t, "first!!", again[0].Text)
	assert.Equal(t, "second on", again[1].Text)
}

func TestRebuildHeaderFieldAfterEdit(t *testing.T) {
	f := testFormat
	f.HeaderFields = []int{0x8, 64}
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0x8:], 100)
	buf = record(buf, 32, []byte("hello"))
	buf = append(buf, make([]byte, 32)...)

	_, skipped := f.Rebuild(buf, []Edit{{ID: "x", Offset: 36, Text: "hello!"}})
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], errs.ErrOffsetOutOfRange)
	assert.Equal(t, 64, skipped[0].Start)
}

func TestRebuildNoEditsIsIdentity(t *testing.T) {
	buf := make([]byte, 32)
	buf = record(buf, 32, []byte("same"))
	out, skipped := testFormat.Rebuild(buf, nil)
	assert.Empty(t, skipped)
	assert.Equal(t, buf, out)
}

func TestScanRejectsBinaryAndOversize(t *testing.T) {
	buf := make([]byte, 16)
	buf = record(buf, 16, []byte{'a', 0x01, 'b'})
	// Length pointing past the end.
	buf = append(buf, magic...)
	buf = binary.LittleEndian.AppendUint32(buf, 1000)
	buf = append(buf, "short"...)

	assert.Empty(t, testFormat.Scan(buf))
}

func TestShiftJISFallback(t *testing.T) {
	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("こんにちは"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	buf = record(buf, 16, sjis)
	buf = record(buf, len(buf), []byte("ascii"))

	blocks := testFormat.Scan(buf)
	require.Len(t, blocks, 2)
	assert.Equal(t, "こんにちは", blocks[0].Text)
	assert.Equal(t, "shift_jis", blocks[0].Codec)
	assert.Equal(t, "utf-8", blocks[1].Codec)

	// The emoji has no Shift_JIS form: that block is skipped, the other applies.
	out, skipped := testFormat.Rebuild(buf, []Edit{
		{ID: "jp", Offset: blocks[0].Offset, Text: "😀"},
		{ID: "en", Offset: blocks[1].Offset, Text: "ASCII"},
	})
	require.Len(t, skipped, 1)
	assert.Equal(t, "jp", skipped[0].ID)
	assert.ErrorIs(t, skipped[0], errs.ErrUnencodable)

	again := testFormat.Scan(out)
	require.Len(t, again, 2)
	assert.Equal(t, "こんにちは", again[0].Text)
	assert.Equal(t, "ASCII", again[1].Text)
}

func TestLossyBlocksAreNotRebuilt(t *testing.T) {
	buf := make([]byte, 16)
	buf = record(buf, 16, []byte{0xFF, 0xFF, 0xFF})

	blocks := testFormat.Scan(buf)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].Lossy)

	out, skipped := testFormat.Rebuild(buf, []Edit{{ID: "l", Offset: blocks[0].Offset, Text: "x"}})
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], errs.ErrDecodeFailure)
	assert.Equal(t, buf, out)
}

func TestRebuildUnknownOffset(t *testing.T) {
	buf := make([]byte, 16)
	buf = record(buf, 16, []byte("text"))
	out, skipped := testFormat.Rebuild(buf, []Edit{{ID: "gone", Offset: 3, Text: "x"}})
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], errs.ErrOffsetOutOfRange)
	assert.Equal(t, buf, out)
}

func TestHeaderFieldUnderflow(t *testing.T) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0x8:], 1)
	binary.LittleEndian.PutUint32(buf[0xC:], 100)
	buf = record(buf, 16, []byte("long text"))

	out, skipped := testFormat.Rebuild(buf, []Edit{{ID: "s", Offset: 20, Text: "s"}})
	require.Len(t, skipped, 1)
	assert.Equal(t, 0x8, skipped[0].Start)
	assert.ErrorIs(t, skipped[0], errs.ErrOffsetOutOfRange)
	assert.Equal(t, uint32(1), u32(out, 0x8))
	assert.Equal(t, uint32(92), u32(out, 0xC))
	assert.Equal(t, "s", string(out[24:25]))
}
