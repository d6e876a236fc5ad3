package document

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sibylhq/sibyl/internal/log"
)

// Querier is the subset of pgxpool.Pool the record loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectRecords = `
SELECT id, content, metadata
FROM documents
WHERE collection = $1 AND owner_id = $2
ORDER BY created_at, id`

// RecordLoader selects previously stored documents from PostgreSQL.
type RecordLoader struct {
	db         Querier
	collection string
	logger     log.Logger
}

// NewRecordLoader creates a loader over the given collection.
func NewRecordLoader(db Querier, collection string, logger log.Logger) *RecordLoader {
	return &RecordLoader{db: db, collection: collection, logger: logger}
}

// Load returns every stored document owned by ownerID, oldest first.
// Zero matching rows is a normal empty result, not an error; callers
// render their own "no documents" message.
func (l *RecordLoader) Load(ctx context.Context, ownerID string) ([]Document, error) {
	rows, err := l.db.Query(ctx, selectRecords, l.collection, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select documents for %q: %w: %v", ownerID, ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id       string
			content  string
			metadata []byte
		)
		if err := rows.Scan(&id, &content, &metadata); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}

		meta := map[string]string{}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &meta); err != nil {
				return nil, fmt.Errorf("decode metadata for document %q: %w", id, err)
			}
		}

		docs = append(docs, Document{
			ID:       id,
			Text:     Normalize(content),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents for %q: %w: %v", ownerID, ErrSourceUnavailable, err)
	}

	l.logger.Debug("records loaded", "owner", ownerID, "count", len(docs))
	return docs, nil
}
