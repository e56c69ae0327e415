package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"script-translator/internal/parser"
	"script-translator/internal/session"
	"script-translator/internal/textutil"
	"script-translator/internal/worker"
)

// columns lists the stored fields of a Pair, in field order.
const columns = `hash, source, translation, format, file`

// Pair is one remembered translation. Field order matches columns.
type Pair struct {
	Hash        string `json:"hash"`
	Source      string `json:"source"`
	Translation string `json:"translation"`
	Format      string `json:"format"`
	File        string `json:"file"`
}

// NewPair builds a pair keyed by the hash of source.
func NewPair(source, translation, format, file string) Pair {
	return Pair{
		Hash:        textutil.Hash(source),
		Source:      source,
		Translation: translation,
		Format:      format,
		File:        file,
	}
}

// Store persists pairs.
type Store interface {
	Get(ctx context.Context, hash string) (Pair, bool, error)
	Put(ctx context.Context, pairs []Pair) error
	All(ctx context.Context) ([]Pair, error)
	Close() error
}

// Memory provides in-memory + store-backed lookup of translations by source text.
type Memory struct {
	store Store
	mu    sync.RWMutex
	pairs map[string]Pair // hash → pair
}

// New creates a memory over store. A nil store keeps pairs in memory only.
func New(store Store) *Memory {
	return &Memory{
		store: store,
		pairs: make(map[string]Pair),
	}
}

// Open selects a store from dsn: empty for none, a postgres:// URL for
// Postgres, anything else is a SQLite database path.
func Open(ctx context.Context, dsn string) (*Memory, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return New(nil), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		store, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return New(store), nil
	default:
		store, err := NewSQLiteStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return New(store), nil
	}
}

// Close releases the store.
func (m *Memory) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Len returns the number of pairs held in memory.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pairs)
}

// Get retrieves a remembered translation. Returns empty string and false if not found.
func (m *Memory) Get(ctx context.Context, source string) (string, bool) {
	hash := textutil.Hash(source)

	m.mu.RLock()
	if p, ok := m.pairs[hash]; ok {
		m.mu.RUnlock()
		return p.Translation, true
	}
	m.mu.RUnlock()

	if m.store == nil {
		return "", false
	}
	p, ok, err := m.store.Get(ctx, hash)
	if err != nil {
		log.Debug().Err(err).Str("text", textutil.Truncate(source, 30)).Msg("Memory lookup failed")
		return "", false
	}
	if !ok {
		return "", false
	}

	m.mu.Lock()
	m.pairs[hash] = p
	m.mu.Unlock()

	return p.Translation, true
}

// Set stores a pair in memory and in the store.
func (m *Memory) Set(ctx context.Context, p Pair) error {
	_, err := m.SetBatch(ctx, []Pair{p}, 1)
	return err
}

// SetBatch stores pairs in batches of batchSize. Pairs without a source or
// translation are ignored. It returns the number of pairs stored.
func (m *Memory) SetBatch(ctx context.Context, pairs []Pair, batchSize int) (int, error) {
	valid := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.Source == "" || strings.TrimSpace(p.Translation) == "" {
			continue
		}
		if p.Hash == "" {
			p.Hash = textutil.Hash(p.Source)
		}
		valid = append(valid, p)
	}

	stored := 0
	for _, batch := range worker.Batch(valid, batchSize) {
		if m.store != nil {
			if err := m.store.Put(ctx, batch); err != nil {
				return stored, fmt.Errorf("memory set: %w", err)
			}
		}
		m.mu.Lock()
		for _, p := range batch {
			m.pairs[p.Hash] = p
		}
		m.mu.Unlock()
		stored += len(batch)
	}
	return stored, nil
}

// Preload loads all stored pairs into memory.
func (m *Memory) Preload(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	pairs, err := m.store.All(ctx)
	if err != nil {
		return fmt.Errorf("preload memory: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range pairs {
		m.pairs[p.Hash] = p
	}

	log.Info().Int("count", len(pairs)).Msg("Preloaded translation memory")
	return nil
}

// Fill sets remembered translations on translatable entries that have none.
// It returns the number of entries filled.
func (m *Memory) Fill(ctx context.Context, entries []parser.Entry) int {
	n := 0
	for i := range entries {
		e := &entries[i]
		if !e.Translatable || e.Translation != "" {
			continue
		}
		if t, ok := m.Get(ctx, e.Original); ok {
			e.Translation = t
			n++
		}
	}
	return n
}

// SessionPairs returns the translated records of s as pairs.
func SessionPairs(s *session.Session) []Pair {
	var pairs []Pair
	for _, r := range s.Records {
		if r.Translation == "" || r.Translation == r.Original {
			continue
		}
		pairs = append(pairs, NewPair(r.Original, r.Translation, r.Format, r.File))
	}
	return pairs
}
