package parser

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"script-translator/internal/errs"
	"script-translator/internal/span"
	"script-translator/internal/textutil"
)

// encodeFunc renders the bytes that replace an entry's span.
type encodeFunc func(e Entry, text string) ([]byte, error)

// pending returns the text to write for e, or false when e is left as is.
// A translation identical to the original keeps the original bytes.
func pending(e Entry, trim bool) (string, bool) {
	if !e.Translatable || e.Translation == e.Original {
		return "", false
	}
	text := e.Translation
	if trim {
		text = strings.TrimSpace(text)
	}
	return text, text != ""
}

// checkEntry verifies that e was produced from a buffer with fingerprint fp
// and that its span still fits n bytes.
func checkEntry(e Entry, fp string, n int) (span.Span, error) {
	if e.Meta == nil {
		return span.Span{}, fmt.Errorf("entry without metadata: %w", errs.ErrOffsetOutOfRange)
	}
	sp := e.Meta.Bounds()
	if idFP, _, _ := strings.Cut(e.ID, ":"); idFP != fp {
		return sp, errs.ErrStaleEntry
	}
	if !sp.Valid(n) {
		return sp, errs.ErrOffsetOutOfRange
	}
	return sp, nil
}

// rebuildSpans applies the translation of every pending entry to a copy of
// data. Entries that cannot be applied are skipped and reported.
func rebuildSpans(format string, data []byte, entries []Entry, trim bool, encode encodeFunc) ([]byte, *RebuildReport) {
	fp := textutil.Fingerprint(data)
	report := &RebuildReport{}

	var reps []span.Replacement
	for _, e := range entries {
		text, ok := pending(e, trim)
		if !ok {
			continue
		}
		sp, err := checkEntry(e, fp, len(data))
		if err == nil {
			var b []byte
			if b, err = encode(e, text); err == nil {
				reps = append(reps, span.Replacement{Span: sp, ID: e.ID, Text: b})
				continue
			}
		}
		report.Skipped = append(report.Skipped, errs.Skip(e.ID, sp.Start, sp.End, err))
	}

	out, failed := span.Apply(data, reps)
	report.Skipped = append(report.Skipped, failed...)
	report.Applied = len(reps) - len(failed)

	for _, s := range report.Skipped {
		log.Debug().Str("format", format).Str("id", s.ID).Err(s.Err).Msg("Entry skipped")
	}
	return out, report
}
