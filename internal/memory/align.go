package memory

import (
	"github.com/rs/zerolog/log"

	"script-translator/internal/parser"
)

// Align pairs the entries of two parses of the same file, one original and
// one already translated, by position. Unchanged or empty entries yield no
// pair. When the entry counts differ only the common prefix is paired.
func Align(orig, trans *parser.ParseResult) []Pair {
	src := translatable(orig.Entries)
	dst := translatable(trans.Entries)

	if len(src) != len(dst) {
		log.Warn().
			Str("file", orig.FilePath).
			Int("original", len(src)).
			Int("translated", len(dst)).
			Msg("Entry counts differ, pairing common prefix")
	}

	pairCount := min(len(src), len(dst))

	var pairs []Pair
	for i := 0; i < pairCount; i++ {
		s, d := src[i].Original, dst[i].Original
		if s == "" || d == "" || s == d {
			continue
		}
		pairs = append(pairs, NewPair(s, d, orig.Format, orig.FilePath))
	}

	log.Debug().Str("file", orig.FilePath).Int("pairs", len(pairs)).Msg("Aligned translation pairs")
	return pairs
}

func translatable(entries []parser.Entry) []parser.Entry {
	out := make([]parser.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Translatable {
			out = append(out, e)
		}
	}
	return out
}
