package parser

import (
	"bytes"
	"fmt"
	"strings"

	"script-translator/internal/errs"
	"script-translator/internal/span"
)

// line is one line of a buffer without its terminator.
type line struct {
	No         int // 1-based
	Start, End int // End excludes "\n" and a preceding "\r"
}

func (l line) text(data []byte) string {
	return string(data[l.Start:l.End])
}

// splitLines returns the lines of data, keeping absolute offsets.
func splitLines(data []byte) []line {
	var lines []line
	for start, no := 0, 1; start < len(data); no++ {
		end := len(data)
		next := len(data)
		if nl := bytes.IndexByte(data[start:], '\n'); nl >= 0 {
			end = start + nl
			next = end + 1
		}
		if end > start && data[end-1] == '\r' {
			end--
		}
		lines = append(lines, line{No: no, Start: start, End: end})
		start = next
	}
	return lines
}

// trimSpan narrows [start, end) of data to exclude surrounding blanks.
func trimSpan(data []byte, start, end int) span.Span {
	for start < end && (data[start] == ' ' || data[start] == '\t') {
		start++
	}
	for end > start && (data[end-1] == ' ' || data[end-1] == '\t') {
		end--
	}
	return span.New(start, end)
}

// encodeInline writes text verbatim, refusing bytes that would split the
// record it replaces.
func encodeInline(forbidden string) encodeFunc {
	return func(e Entry, text string) ([]byte, error) {
		if strings.ContainsAny(text, forbidden) {
			return nil, fmt.Errorf("translation contains a record separator: %w", errs.ErrUnencodable)
		}
		return []byte(text), nil
	}
}
