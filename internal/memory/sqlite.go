package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS translation_memory (
	hash        TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	translation TEXT NOT NULL,
	format      TEXT NOT NULL DEFAULT '',
	file        TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const sqliteUpsert = `INSERT INTO translation_memory (hash, source, translation, format, file)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (hash) DO UPDATE SET
	source = excluded.source,
	translation = excluded.translation,
	format = excluded.format,
	file = excluded.file,
	updated_at = CURRENT_TIMESTAMP`

// SQLiteStore keeps pairs in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open SQLite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids lock errors.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create memory table: %w", err)
	}
	log.Debug().Str("path", path).Msg("Opened SQLite memory")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, hash string) (Pair, bool, error) {
	var p Pair
	err := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM translation_memory WHERE hash = ?`, hash).
		Scan(&p.Hash, &p.Source, &p.Translation, &p.Format, &p.File)
	if errors.Is(err, sql.ErrNoRows) {
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, fmt.Errorf("query memory pair: %w", err)
	}
	return p, true, nil
}

// Put upserts pairs inside one transaction.
func (s *SQLiteStore) Put(ctx context.Context, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx, p.Hash, p.Source, p.Translation, p.Format, p.File); err != nil {
			return fmt.Errorf("upsert memory pair: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM translation_memory ORDER BY hash`)
	if err != nil {
		return nil, fmt.Errorf("query memory pairs: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.Hash, &p.Source, &p.Translation, &p.Format, &p.File); err != nil {
			return nil, fmt.Errorf("scan memory pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory pairs: %w", err)
	}
	return pairs, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
