// Package strtable reads and rewrites length-prefixed string records embedded
// in binary script files.
//
// A record is a magic marker followed by a little-endian uint32 payload length
// and the payload itself. Rewriting a record changes the file size, so fixed
// header fields holding sizes or offsets are shifted by the net change.
package strtable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"golang.org/x/text/encoding"

	"script-translator/internal/errs"
	"script-translator/internal/span"
)

const lengthSize = 4

// Codec is an encoding tried when decoding payloads.
type Codec struct {
	Name string
	encoding.Encoding
}

// Format describes one string-table layout.
type Format struct {
	Magic        []byte
	MaxPayload   int
	// HeaderFields are offsets of uint32 fields that receive the total size
	// change. They must precede every record.
	HeaderFields []int
	Codecs       []Codec // Decoding order; the first clean round trip wins
	// Accept rejects payloads that are binary data rather than text.
	Accept func(payload []byte) bool
}

// Block is one string record found by Scan.
type Block struct {
	Offset  int // Offset of the length field
	Length  int
	Payload []byte
	Text    string
	Codec   string // Name of the decoding codec, "" when Lossy
	Lossy   bool   // No codec round-trips the payload; Text is best effort
}

// Span covers the length field and the payload.
func (b Block) Span() span.Span {
	return span.New(b.Offset, b.Offset+lengthSize+b.Length)
}

// Edit asks for the record whose length field is at Offset to hold Text.
type Edit struct {
	ID     string
	Offset int
	Text   string
}

// Scan returns the records of buf in offset order. Records never overlap:
// after a record is accepted, scanning resumes past its payload.
func (f Format) Scan(buf []byte) []Block {
	var blocks []Block
	i := 0
	for {
		k := bytes.Index(buf[i:], f.Magic)
		if k < 0 {
			return blocks
		}
		m := i + k
		lenAt := m + len(f.Magic)
		if lenAt+lengthSize > len(buf) {
			return blocks
		}

		size := int64(binary.LittleEndian.Uint32(buf[lenAt:]))
		payloadAt := lenAt + lengthSize
		if size == 0 || size > int64(f.MaxPayload) || int64(payloadAt)+size > int64(len(buf)) {
			i = m + 1
			continue
		}
		payload := buf[payloadAt : payloadAt+int(size)]
		if f.Accept != nil && !f.Accept(payload) {
			i = m + 1
			continue
		}

		b := Block{Offset: lenAt, Length: int(size), Payload: payload}
		b.Text, b.Codec, b.Lossy = f.decode(payload)
		blocks = append(blocks, b)
		i = payloadAt + int(size)
	}
}

// decode tries each codec in order and keeps the first whose decoding
// re-encodes to the identical payload. When none does, the first codec's
// decoding is returned as lossy.
func (f Format) decode(payload []byte) (string, string, bool) {
	for _, c := range f.Codecs {
		text, err := c.NewDecoder().Bytes(payload)
		if err != nil {
			continue
		}
		back, err := c.NewEncoder().Bytes(text)
		if err != nil || !bytes.Equal(back, payload) {
			continue
		}
		return string(text), c.Name, false
	}
	if len(f.Codecs) == 0 {
		return string(payload), "", true
	}
	text, _ := f.Codecs[0].NewDecoder().Bytes(payload)
	return string(text), "", true
}

func (f Format) codec(name string) (Codec, bool) {
	for _, c := range f.Codecs {
		if c.Name == name {
			return c, true
		}
	}
	return Codec{}, false
}

// Encode renders text with the named codec, rejecting text that would not
// scan back as the same record.
func (f Format) Encode(text, codec string) ([]byte, error) {
	c, ok := f.codec(codec)
	if !ok {
		return nil, fmt.Errorf("encode with %q: %w", codec, errs.ErrUnencodable)
	}
	payload, err := c.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode with %s: %w: %v", c.Name, errs.ErrUnencodable, err)
	}
	if len(payload) == 0 || len(payload) > f.MaxPayload {
		return nil, fmt.Errorf("encoded length %d outside (0, %d]: %w", len(payload), f.MaxPayload, errs.ErrUnencodable)
	}
	if f.Accept != nil && !f.Accept(payload) {
		return nil, fmt.Errorf("encoded payload rejected by format: %w", errs.ErrUnencodable)
	}
	return payload, nil
}

// Rebuild rescans buf and returns a copy with every edit applied, plus the
// edits that had to be skipped. Header fields are shifted once by the total
// size change of the applied edits.
func (f Format) Rebuild(buf []byte, edits []Edit) ([]byte, []*errs.SkipError) {
	byOffset := make(map[int]Block)
	for _, b := range f.Scan(buf) {
		byOffset[b.Offset] = b
	}

	var (
		skipped []*errs.SkipError
		reps    []span.Replacement
	)
	for _, e := range edits {
		b, ok := byOffset[e.Offset]
		if !ok {
			skipped = append(skipped, errs.Skip(e.ID, e.Offset, e.Offset, errs.ErrOffsetOutOfRange))
			continue
		}
		sp := b.Span()
		if b.Lossy {
			skipped = append(skipped, errs.Skip(e.ID, sp.Start, sp.End, errs.ErrDecodeFailure))
			continue
		}
		payload, err := f.Encode(e.Text, b.Codec)
		if err != nil {
			skipped = append(skipped, errs.Skip(e.ID, sp.Start, sp.End, err))
			continue
		}
		rec := binary.LittleEndian.AppendUint32(make([]byte, 0, lengthSize+len(payload)), uint32(len(payload)))
		reps = append(reps, span.Replacement{Span: sp, ID: e.ID, Text: append(rec, payload...)})
	}

	out, failed := span.Apply(buf, reps)
	skipped = append(skipped, failed...)

	diff := int64(len(out) - len(buf))
	if diff == 0 {
		return out, skipped
	}

	firstEdit := math.MaxInt
	for _, r := range reps {
		if !slices.ContainsFunc(failed, func(s *errs.SkipError) bool { return s.ID == r.ID && s.Start == r.Start }) {
			firstEdit = min(firstEdit, r.Start)
		}
	}
	for _, at := range f.HeaderFields {
		if err := patchField(out, at, firstEdit, diff); err != nil {
			skipped = append(skipped, errs.Skip("", at, at+lengthSize, err))
		}
	}
	return out, skipped
}

// patchField adds diff to the uint32 at offset at. A field that is out of
// bounds, overlaps the first edit, or would leave the uint32 range is reported
// and left unchanged.
func patchField(out []byte, at, firstEdit int, diff int64) error {
	if at < 0 || at+lengthSize > len(out) || at+lengthSize > firstEdit {
		return fmt.Errorf("header field at %#x: %w", at, errs.ErrOffsetOutOfRange)
	}
	v := int64(binary.LittleEndian.Uint32(out[at:])) + diff
	if v < 0 || v > math.MaxUint32 {
		return fmt.Errorf("header field at %#x would hold %d: %w", at, v, errs.ErrOffsetOutOfRange)
	}
	binary.LittleEndian.PutUint32(out[at:], uint32(v))
	return nil
}
