package placeholder

import (
	"cmp"
	"regexp"
	"slices"
)

// patterns detect variables and control sequences that a translation must keep.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\{[a-zA-Z_][a-zA-Z0-9_]*\}`),         // ${value}
	regexp.MustCompile(`\{[0-9]+\}`),                           // {0}, {1}
	regexp.MustCompile(`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpq]`), // %d, %s, %f, %2d, etc.
	regexp.MustCompile(`%%`),                                   // escaped percent literal
	regexp.MustCompile(`\\[a-zA-Z][0-9]*`),                     // \n, \a, \w2
	regexp.MustCompile(`\[[a-zA-Z_][^\[\]\n]*\]`),              // [cr], [ruby text="..."]
}

type match struct {
	start, end int
}

// Find returns the placeholders of s in order of appearance. Overlapping
// matches keep the one that starts first, then the longest.
func Find(s string) []string {
	var all []match
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(s, -1) {
			all = append(all, match{loc[0], loc[1]})
		}
	}
	if len(all) == 0 {
		return nil
	}

	slices.SortFunc(all, func(a, b match) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(b.end-b.start, a.end-a.start)
	})

	var found []string
	lastEnd := -1
	for _, m := range all {
		if m.start >= lastEnd {
			found = append(found, s[m.start:m.end])
			lastEnd = m.end
		}
	}
	return found
}

// Missing lists placeholders of original that translation does not keep,
// counting repeated placeholders separately.
func Missing(original, translation string) []string {
	want := Find(original)
	if len(want) == 0 {
		return nil
	}

	have := make(map[string]int)
	for _, p := range Find(translation) {
		have[p]++
	}

	var missing []string
	for _, p := range want {
		if have[p] > 0 {
			have[p]--
			continue
		}
		missing = append(missing, p)
	}
	return missing
}
