package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sibylhq/sibyl/internal/knowledge"
	"github.com/sibylhq/sibyl/internal/log"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type distanceRow struct {
	id       string
	content  string
	distance float64
}

type distanceRows struct {
	rows []distanceRow
	idx  int
}

func (r *distanceRows) Close()                                       {}
func (r *distanceRows) Err() error                                   { return nil }
func (r *distanceRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *distanceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *distanceRows) Values() ([]any, error)                       { return nil, nil }
func (r *distanceRows) RawValues() [][]byte                          { return nil }
func (r *distanceRows) Conn() *pgx.Conn                              { return nil }

func (r *distanceRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *distanceRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	*dest[0].(*string) = row.id
	*dest[1].(*string) = row.content
	*dest[2].(*[]byte) = nil
	*dest[3].(*float64) = row.distance
	return nil
}

type distanceDB struct {
	rows *distanceRows
	err  error
	args []any
}

func (db *distanceDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	db.args = args
	if db.err != nil {
		return nil, db.err
	}
	return db.rows, nil
}

func (db *distanceDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (db *distanceDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func TestStoreRetrieverNormalizesDistance(t *testing.T) {
	db := &distanceDB{rows: &distanceRows{rows: []distanceRow{
		{"near", "very close", 0.1},
		{"far", "less close", 0.8},
	}}}
	store := knowledge.New(db, staticEmbedder{}, "rag_documents", log.NewNop())

	r := NewStoreRetriever(store, "patient-1")
	passages, err := r.Retrieve(context.Background(), "medication", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("got %d passages, want 2", len(passages))
	}

	// Distance 0.1 becomes relevance 0.9; lower distance ranks first.
	if got := passages[0].Relevance; got < 0.89 || got > 0.91 {
		t.Errorf("passages[0].Relevance = %g, want 0.9", got)
	}
	if passages[0].Relevance <= passages[1].Relevance {
		t.Error("passages not in descending relevance order")
	}

	// Owner filter and topK reach the store.
	if len(db.args) != 4 || db.args[2] != "patient-1" || db.args[3] != 5 {
		t.Errorf("query args = %v", db.args)
	}
}

func TestStoreRetrieverWithoutOwner(t *testing.T) {
	db := &distanceDB{rows: &distanceRows{}}
	store := knowledge.New(db, staticEmbedder{}, "rag_documents", log.NewNop())

	r := NewStoreRetriever(store, "")
	if _, err := r.Retrieve(context.Background(), "q", 5); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// Unscoped search uses the collection-wide statement.
	if len(db.args) != 3 {
		t.Errorf("query args = %v, want collection-wide form", db.args)
	}
}

func TestStoreRetrieverSearchFailure(t *testing.T) {
	searchErr := errors.New("statement timeout")
	db := &distanceDB{err: searchErr}
	store := knowledge.New(db, staticEmbedder{}, "rag_documents", log.NewNop())

	r := NewStoreRetriever(store, "")
	if _, err := r.Retrieve(context.Background(), "q", 5); !errors.Is(err, searchErr) {
		t.Fatalf("Retrieve error = %v, want wrapped search error", err)
	}
}

func TestRelevanceFromDistance(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.4, 0.6},
		{1, 0},
		{2, -1},
	}
	for _, tt := range tests {
		if got := RelevanceFromDistance(tt.distance); got != tt.want {
			t.Errorf("RelevanceFromDistance(%g) = %g, want %g", tt.distance, got, tt.want)
		}
	}
}
