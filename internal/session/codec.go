package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"
)

// Format is a session file encoding.
type Format string

const (
	JSON Format = "json"
	TSV  Format = "tsv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, TSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown session format %q", s)
}

// PathFormat derives the format from a path such as "out.tsv.xz". Paths
// with an unrecognised extension use fallback.
func PathFormat(path string, fallback Format) (format Format, compressed bool) {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".xz") {
		compressed = true
		name = strings.TrimSuffix(name, ".xz")
	}
	switch filepath.Ext(name) {
	case ".json":
		return JSON, compressed
	case ".tsv":
		return TSV, compressed
	}
	return fallback, compressed
}

// tsvMagic starts the first line of a TSV session.
const tsvMagic = "#session"

var tsvColumns = []string{"file", "format", "id", "speaker", "original", "translation", "context"}

// Encode writes s to w.
func (s *Session) Encode(w io.Writer, format Format) error {
	switch format {
	case JSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(s); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case TSV:
		return s.encodeTSV(w)
	}
	return fmt.Errorf("unknown session format %q", format)
}

func (s *Session) encodeTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%s\n", tsvMagic, s.ID,
		s.Created.Format(time.RFC3339), escapeTSV(s.Root), escapeTSV(s.Source))
	fmt.Fprintln(bw, strings.Join(tsvColumns, "\t"))

	for _, r := range s.Records {
		ctx := ""
		if len(r.Context) > 0 {
			raw, err := json.Marshal(r.Context)
			if err != nil {
				return fmt.Errorf("encode context: %w", err)
			}
			ctx = string(raw)
		}
		fields := []string{r.File, r.Format, r.ID, r.Speaker, r.Original, r.Translation, ctx}
		for i, f := range fields {
			fields[i] = escapeTSV(f)
		}
		fmt.Fprintln(bw, strings.Join(fields, "\t"))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write TSV: %w", err)
	}
	return nil
}

// Decode reads a session from r.
func Decode(r io.Reader, format Format) (*Session, error) {
	switch format {
	case JSON:
		var s Session
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		return &s, nil
	case TSV:
		return decodeTSV(r)
	}
	return nil, fmt.Errorf("unknown session format %q", format)
}

func decodeTSV(r io.Reader) (*Session, error) {
	br := bufio.NewReader(r)
	lineNo := 0
	next := func() (string, bool, error) {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false, fmt.Errorf("read TSV: %w", err)
		}
		if line == "" && err != nil {
			return "", false, nil
		}
		lineNo++
		return strings.TrimRight(line, "\r\n"), true, nil
	}

	head, ok, err := next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("decode TSV: empty session")
	}
	meta := strings.Split(head, "\t")
	if len(meta) != 5 || meta[0] != tsvMagic {
		return nil, fmt.Errorf("decode TSV: missing %s header", tsvMagic)
	}
	created, err := time.Parse(time.RFC3339, meta[2])
	if err != nil {
		return nil, fmt.Errorf("decode TSV created time: %w", err)
	}
	s := &Session{ID: meta[1], Created: created, Root: unescapeTSV(meta[3]), Source: unescapeTSV(meta[4])}

	if _, ok, err := next(); err != nil || !ok {
		return nil, fmt.Errorf("decode TSV: missing column header")
	}

	for {
		line, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(tsvColumns) {
			return nil, fmt.Errorf("decode TSV line %d: want %d columns, got %d", lineNo, len(tsvColumns), len(fields))
		}
		for i, f := range fields {
			fields[i] = unescapeTSV(f)
		}
		rec := Record{
			File:        fields[0],
			Format:      fields[1],
			ID:          fields[2],
			Speaker:     fields[3],
			Original:    fields[4],
			Translation: fields[5],
		}
		if fields[6] != "" {
			if err := json.Unmarshal([]byte(fields[6]), &rec.Context); err != nil {
				return nil, fmt.Errorf("decode TSV line %d context: %w", lineNo, err)
			}
		}
		s.Records = append(s.Records, rec)
	}
	return s, nil
}

// escapeTSV makes s safe for a TSV field. Backslashes are escaped too so
// unescapeTSV restores the exact text.
func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

func unescapeTSV(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Write stores s at path. The format comes from the extension, falling back
// to fallback; a trailing ".xz" compresses the file.
func (s *Session) Write(path string, fallback Format) error {
	format, compressed := PathFormat(path, fallback)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var zw *xz.Writer
	if compressed {
		zw, err = xz.NewWriter(f)
		if err != nil {
			return fmt.Errorf("create xz writer: %w", err)
		}
		w = zw
	}

	if err := s.Encode(w, format); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("close xz writer: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}

	log.Info().
		Str("path", path).
		Str("format", string(format)).
		Bool("xz", compressed).
		Int("records", len(s.Records)).
		Msg("Exported session")
	return nil
}

// Read loads a session written by Write.
func Read(path string, fallback Format) (*Session, error) {
	format, compressed := PathFormat(path, fallback)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if compressed {
		zr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create xz reader: %w", err)
		}
		r = zr
	}

	s, err := Decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("records", len(s.Records)).Msg("Loaded session")
	return s, nil
}
