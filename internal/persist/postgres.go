package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"catalog-service/internal/catalog"
	"catalog-service/internal/library"
)

// DB is the part of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres stores one row per track; position keeps the catalog order.
// catalog_state records that a catalog was saved at all, so an empty
// catalog is told apart from a fresh database.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS tracks(
          id BIGINT PRIMARY KEY,
          position INT NOT NULL,
          title TEXT NOT NULL DEFAULT '',
          artist TEXT NOT NULL DEFAULT '',
          duration INT NOT NULL DEFAULT 0,
          genre TEXT NOT NULL DEFAULT '',
          audio_path TEXT,
          cover_path TEXT
      )
  `); err != nil {
		return fmt.Errorf("migrate tracks: %w", err)
	}
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS catalog_state(
          id INT PRIMARY KEY,
          saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )
  `); err != nil {
		return fmt.Errorf("migrate catalog_state: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) ([]catalog.Track, error) {
	var one int
	err := p.db.QueryRow(ctx, `SELECT id FROM catalog_state WHERE id = 1`).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.ErrNoCatalog
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog state: %w", err)
	}

	rows, err := p.db.Query(ctx, `
        SELECT id, title, artist, duration, genre, audio_path, cover_path
        FROM tracks
        ORDER BY position
    `)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	defer rows.Close()

	tracks := []catalog.Track{}
	for rows.Next() {
		var t catalog.Track
		// NULL leaves the reference nil; an empty string stays an empty string.
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Duration, &t.Genre, &t.AudioPath, &t.CoverPath); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	return tracks, nil
}

// Save replaces the table contents in one transaction.
func (p *Postgres) Save(ctx context.Context, tracks []catalog.Track) (err error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM tracks`); err != nil {
		return fmt.Errorf("clear tracks: %w", err)
	}
	for i, t := range tracks {
		if _, err = tx.Exec(ctx, `
            INSERT INTO tracks(id, position, title, artist, duration, genre, audio_path, cover_path)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        `, t.ID, i, t.Title, t.Artist, t.Duration, t.Genre, nullable(t.AudioPath), nullable(t.CoverPath)); err != nil {
			return fmt.Errorf("insert track %d: %w", t.ID, err)
		}
	}
	if _, err = tx.Exec(ctx, `
        INSERT INTO catalog_state(id, saved_at) VALUES (1, now())
        ON CONFLICT (id) DO UPDATE SET saved_at = now()
    `); err != nil {
		return fmt.Errorf("mark saved: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullable(ref *string) any {
	if ref == nil {
		return nil
	}
	return *ref
}
