package session

import (
	"time"

	"github.com/google/uuid"

	"script-translator/internal/parser"
)

// Record is one exported entry.
type Record struct {
	File        string            `json:"file"`
	Format      string            `json:"format"`
	ID          string            `json:"id"`
	Speaker     string            `json:"speaker,omitempty"`
	Original    string            `json:"original"`
	Translation string            `json:"translation"`
	Context     map[string]string `json:"context,omitempty"`
}

// Session is the unit of exchange with translators: every translatable
// entry of a directory, keyed by file and entry ID.
type Session struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Root    string    `json:"root"`
	Source  string    `json:"source_language,omitempty"`
	Records []Record  `json:"records"`
}

// New creates an empty session for the directory root.
func New(root, sourceLanguage string) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Created: time.Now().UTC().Truncate(time.Second),
		Root:    root,
		Source:  sourceLanguage,
	}
}

// Add appends the translatable entries of res under the file name rel.
// It returns the number of records added.
func (s *Session) Add(rel string, res *parser.ParseResult) int {
	n := 0
	for _, e := range res.Entries {
		if !e.Translatable {
			continue
		}
		s.Records = append(s.Records, Record{
			File:        rel,
			Format:      res.Format,
			ID:          e.ID,
			Speaker:     e.Speaker,
			Original:    e.Original,
			Translation: e.Translation,
			Context:     e.Context,
		})
		n++
	}
	return n
}

// Translated counts records that carry a translation.
func (s *Session) Translated() int {
	n := 0
	for _, r := range s.Records {
		if r.Translation != "" {
			n++
		}
	}
	return n
}

// Index maps file -> entry ID -> translation for translated records.
type Index map[string]map[string]string

// Index builds the translation index of the session.
func (s *Session) Index() Index {
	idx := make(Index)
	for _, r := range s.Records {
		if r.Translation == "" {
			continue
		}
		byID, ok := idx[r.File]
		if !ok {
			byID = make(map[string]string)
			idx[r.File] = byID
		}
		byID[r.ID] = r.Translation
	}
	return idx
}

// Merge copies the translations recorded for file onto entries, matching by
// entry ID. It returns the number of entries that received a translation.
func (idx Index) Merge(file string, entries []parser.Entry) int {
	byID := idx[file]
	if len(byID) == 0 {
		return 0
	}
	n := 0
	for i := range entries {
		if t, ok := byID[entries[i].ID]; ok {
			entries[i].Translation = t
			n++
		}
	}
	return n
}
