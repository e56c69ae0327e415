package filewalker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"script-translator/internal/parser"
)

// MinScore is the lowest detection score that selects an adapter.
const MinScore = 0.3

// Parsers returns one instance of every format adapter, in tie-break order.
func Parsers() []parser.Parser {
	return []parser.Parser{
		parser.NewArtemisParser(),
		parser.NewKirikiriParser(),
		parser.NewMusicaParser(),
		parser.NewDieselParser(),
		parser.NewLuaParser(),
		parser.NewINIParser(),
		parser.NewTXTParser(),
	}
}

// Walker traverses directories and dispatches files to the correct parser.
type Walker struct {
	parsers []parser.Parser
	include []string
	exclude []string
}

// NewWalker creates a Walker with every adapter. Include and exclude are
// doublestar patterns matched against slash-separated paths relative to the
// walked root; an empty include list admits every file.
func NewWalker(include, exclude []string) (*Walker, error) {
	for _, pat := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid glob pattern %q", pat)
		}
	}
	return &Walker{
		parsers: Parsers(),
		include: include,
		exclude: exclude,
	}, nil
}

// FileEntry represents a discovered file ready for processing.
type FileEntry struct {
	Path   string
	Rel    string // Slash-separated path relative to the walked root
	Ext    string
	Parser parser.Parser
	Score  float64
}

// Lookup returns the adapter with the given name.
func (w *Walker) Lookup(name string) (parser.Parser, bool) {
	for _, p := range w.parsers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Parsers returns the adapters known to the walker.
func (w *Walker) Parsers() []parser.Parser {
	return w.parsers
}

// Walk discovers all supported files under the given root directory.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}
		rel = filepath.ToSlash(rel)
		if !w.selected(rel) {
			return nil
		}

		entry, ok, err := w.Classify(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable file")
			return nil
		}
		if ok {
			entry.Rel = rel
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

// Classify picks the adapter with the highest detection score for path.
// Only files with an extension claimed by some adapter are read.
func (w *Walker) Classify(path string) (FileEntry, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !w.claimed(ext) {
		return FileEntry{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FileEntry{}, false, fmt.Errorf("read file: %w", err)
	}

	p, score, ok := w.Detect(path, data)
	if !ok {
		return FileEntry{}, false, nil
	}
	return FileEntry{Path: path, Ext: ext, Parser: p, Score: score}, true, nil
}

// Detect scores data against every adapter and returns the best one, if
// the extension of path is claimed and the score reaches MinScore.
func (w *Walker) Detect(path string, data []byte) (parser.Parser, float64, bool) {
	if !w.claimed(strings.ToLower(filepath.Ext(path))) {
		return nil, 0, false
	}

	var best parser.Parser
	bestScore := 0.0
	for _, p := range w.parsers {
		if score := p.Detect(path, data); score > bestScore {
			best, bestScore = p, score
		}
	}
	if bestScore < MinScore {
		log.Debug().Str("path", path).Float64("score", bestScore).Msg("No adapter matched")
		return nil, bestScore, false
	}
	return best, bestScore, true
}

func (w *Walker) claimed(ext string) bool {
	for _, p := range w.parsers {
		if p.CanParse(ext) {
			return true
		}
	}
	return false
}

func (w *Walker) selected(rel string) bool {
	if len(w.include) > 0 && !matchAny(w.include, rel) {
		return false
	}
	return !matchAny(w.exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// ParseFile parses a single file using the appropriate parser.
func (w *Walker) ParseFile(entry FileEntry, opts parser.Options) (*parser.ParseResult, error) {
	return parser.ParseFile(entry.Parser, entry.Path, opts)
}
