package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/scorepad/internal/service/game"
)

const schema = `CREATE TABLE IF NOT EXISTS game_patch_audit (
    id             BIGSERIAL PRIMARY KEY,
    game_id        TEXT        NOT NULL,
    session_id     TEXT        NOT NULL DEFAULT '',
    admin_supplied BOOLEAN     NOT NULL DEFAULT FALSE,
    allowed        BOOLEAN     NOT NULL,
    facet          TEXT        NOT NULL DEFAULT '',
    reason         TEXT        NOT NULL DEFAULT '',
    table_no       TEXT        NOT NULL DEFAULT '',
    decided_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS game_patch_audit_game_idx ON game_patch_audit (game_id, decided_at)`

// Repository stores PATCH decisions in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewRepositoryFromDB(db), nil
}

// NewRepositoryFromDB wraps an already opened handle.
func NewRepositoryFromDB(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// RecordPatch inserts one decision row.
func (r *Repository) RecordPatch(ctx context.Context, rec game.Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	q := `INSERT INTO game_patch_audit (
        game_id, session_id, admin_supplied, allowed, facet, reason, table_no, decided_at
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.ExecContext(ctx, q,
		strings.TrimSpace(rec.GameID),
		rec.SessionID,
		rec.AdminSupplied,
		rec.Allowed,
		rec.Facet,
		rec.Reason,
		rec.Table,
		at.UTC(),
	)
	return err
}

var _ game.Recorder = (*Repository)(nil)
