package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const pgSchema = `CREATE TABLE IF NOT EXISTS translation_memory (
	hash        TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	translation TEXT NOT NULL,
	format      TEXT NOT NULL DEFAULT '',
	file        TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const pgUpsert = `INSERT INTO translation_memory (hash, source, translation, format, file)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (hash) DO UPDATE SET
	source = EXCLUDED.source,
	translation = EXCLUDED.translation,
	format = EXCLUDED.format,
	file = EXCLUDED.file,
	updated_at = now()`

// PostgresStore keeps pairs in a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create memory table: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, hash string) (Pair, bool, error) {
	var p Pair
	err := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM translation_memory WHERE hash = $1`, hash).
		Scan(&p.Hash, &p.Source, &p.Translation, &p.Format, &p.File)
	if errors.Is(err, pgx.ErrNoRows) {
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, fmt.Errorf("query memory pair: %w", err)
	}
	return p, true, nil
}

// Put upserts pairs in a single round trip.
func (s *PostgresStore) Put(ctx context.Context, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pairs {
		batch.Queue(pgUpsert, p.Hash, p.Source, p.Translation, p.Format, p.File)
	}

	br := s.pool.SendBatch(ctx, batch)
	for range pairs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert memory pair: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) All(ctx context.Context) ([]Pair, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM translation_memory ORDER BY hash`)
	if err != nil {
		return nil, fmt.Errorf("query memory pairs: %w", err)
	}
	pairs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Pair])
	if err != nil {
		return nil, fmt.Errorf("collect memory pairs: %w", err)
	}
	return pairs, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
