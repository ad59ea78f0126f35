package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteEpisodeRepo keeps episode records in a single-file database. The
// record itself is stored as JSON next to the columns used for lookups.
type SQLiteEpisodeRepo struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteEpisodeRepo opens (creating when needed) the database at path.
func NewSQLiteEpisodeRepo(ctx context.Context, path string) (*SQLiteEpisodeRepo, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; batches save from many goroutines.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			algorithm TEXT NOT NULL,
			seed INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS episodes_algorithm ON episodes (algorithm, started_at);
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteEpisodeRepo{path: path, db: db}, nil
}

func (r *SQLiteEpisodeRepo) Save(ctx context.Context, rec sim.EpisodeRecord) error {
	db, err := r.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode episode %s: %w", rec.EpisodeID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO episodes (id, algorithm, seed, outcome, started_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			algorithm = excluded.algorithm,
			seed = excluded.seed,
			outcome = excluded.outcome,
			started_at = excluded.started_at,
			payload = excluded.payload
	`, rec.EpisodeID.String(), rec.Algorithm, rec.Seed, rec.Outcome.String(), rec.StartedAt.UnixNano(), payload)
	return err
}

func (r *SQLiteEpisodeRepo) ByID(ctx context.Context, id uuid.UUID) (*sim.EpisodeRecord, error) {
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM episodes WHERE id = ?`, id.String()).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("episode %s: %w", id, dmn.ErrNotFound)
		}
		return nil, err
	}

	var rec sim.EpisodeRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode episode %s: %w", id, err)
	}
	return &rec, nil
}

func (r *SQLiteEpisodeRepo) ByAlgorithm(ctx context.Context, algorithm string, limit int) ([]sim.EpisodeRecord, error) {
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM episodes
		WHERE algorithm = ?
		ORDER BY started_at DESC, id
		LIMIT ?
	`, algorithm, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []sim.EpisodeRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec sim.EpisodeRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode episode: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *SQLiteEpisodeRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *SQLiteEpisodeRepo) getDB() (*sql.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, errors.New("sqlite repo is closed")
	}
	return r.db, nil
}
