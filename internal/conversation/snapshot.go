package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sibylhq/sibyl/internal/log"
)

// Execer is the subset of pgxpool.Pool the snapshot store needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertSnapshotSQL = `
INSERT INTO conversations (session_id, name, turns)
VALUES ($1, $2, $3)`

// Store writes conversation snapshots to PostgreSQL.
type Store struct {
	db     Execer
	logger log.Logger
}

// NewStore creates a snapshot store.
func NewStore(db Execer, logger log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// SaveSnapshot serializes the turns as JSON and inserts one snapshot
// row. Each clear produces a new row; snapshots are never updated.
func (s *Store) SaveSnapshot(ctx context.Context, sessionID, name string, turns []Turn) error {
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal turns for session %q: %w", sessionID, err)
	}

	if _, err := s.db.Exec(ctx, insertSnapshotSQL, sessionID, name, payload); err != nil {
		return fmt.Errorf("insert snapshot for session %q: %w", sessionID, err)
	}

	s.logger.Debug("snapshot saved",
		"session_id", sessionID,
		"name", name,
		"turns", len(turns))
	return nil
}
