package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"github.com/zeebo/blake3"
)

// Filter decides which extracted strings are worth translating.
type Filter string

const (
	// FilterAny keeps every non-blank string. It is also the zero value's behavior.
	FilterAny Filter = "any"
	// FilterLetters keeps strings with at least one letter in any script.
	FilterLetters Filter = "letters"
	// FilterCJK keeps strings with Han, kana or Hangul characters.
	FilterCJK Filter = "cjk"
)

// ParseFilter validates a filter name.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterAny, FilterLetters, FilterCJK:
		return f, nil
	case "":
		return FilterAny, nil
	default:
		return "", fmt.Errorf("unknown text filter %q", s)
	}
}

// Match reports whether s passes the filter.
func (f Filter) Match(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	switch f {
	case FilterCJK:
		return ContainsCJK(s)
	case FilterLetters:
		return ContainsLetter(s)
	default:
		return true
	}
}

// ContainsCJK checks if a string contains Chinese, Japanese or Korean characters.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}

// ContainsLetter checks if a string contains a letter of any script.
func ContainsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Hash computes a SHA-256 hex hash of a string for deduplication.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// FingerprintLen is the number of hex characters kept by Fingerprint.
const FingerprintLen = 12

// Fingerprint identifies buffer content in entry IDs.
func Fingerprint(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])[:FingerprintLen]
}

// Truncate shortens s to at most maxLen grapheme clusters, appending "..."
// if truncated. Clusters are never split.
func Truncate(s string, maxLen int) string {
	if uniseg.GraphemeClusterCount(s) <= maxLen {
		return s
	}
	var b strings.Builder
	rest, state := s, -1
	for n := 0; n < maxLen && rest != ""; n++ {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		b.WriteString(cluster)
	}
	return b.String() + "..."
}
