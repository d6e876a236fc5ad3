//go:build integration
// +build integration

package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibylhq/sibyl/internal/document"
	"github.com/sibylhq/sibyl/internal/log"
	"github.com/sibylhq/sibyl/internal/testutil"
)

func setupIntegrationStore(t *testing.T) *Store {
	t.Helper()

	pool := testutil.StartPostgres(t)
	embedder := testutil.NewHashEmbedder(768)
	return New(pool, embedder, "rag_documents", log.NewNop())
}

func TestStoreAddAndSearchIntegration(t *testing.T) {
	ctx := context.Background()
	store := setupIntegrationStore(t)

	docs := []document.Document{
		{ID: "med-1", Text: "Take metformin twice daily with meals.", Metadata: map[string]string{"source": "plan.txt", "author": "dr-wu"}},
		{ID: "med-2", Text: "Light exercise after dinner helps digestion.", Metadata: map[string]string{"source": "advice.txt", "author": "dr-wu"}},
		{ID: "med-3", Text: "Schedule a follow-up appointment in March.", Metadata: map[string]string{"source": "schedule.txt", "author": "clinic"}},
	}
	for _, doc := range docs {
		require.NoError(t, store.Add(ctx, doc, "patient-1"))
	}

	// The hash embedder is deterministic, so searching with a stored
	// text ranks that exact document first at distance zero.
	results, err := store.Search(ctx, docs[0].Text, WithTopK(3), WithOwner("patient-1"))
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "med-1", results[0].Document.ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.Equal(t, "plan.txt", results[0].Document.Metadata["source"])

	// Results come back sorted by ascending distance.
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestStoreOwnerIsolationIntegration(t *testing.T) {
	ctx := context.Background()
	store := setupIntegrationStore(t)

	require.NoError(t, store.Add(ctx, document.Document{ID: "a-1", Text: "alpha owner document"}, "owner-a"))
	require.NoError(t, store.Add(ctx, document.Document{ID: "b-1", Text: "beta owner document"}, "owner-b"))

	results, err := store.Search(ctx, "alpha owner document", WithOwner("owner-a"))
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "b-1", r.Document.ID, "owner filter must exclude other owners")
	}

	count, err := store.Count(ctx, "owner-a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestStoreUpsertIntegration(t *testing.T) {
	ctx := context.Background()
	store := setupIntegrationStore(t)

	doc := document.Document{ID: "dup", Text: "original text"}
	require.NoError(t, store.Add(ctx, doc, "patient-1"))

	doc.Text = "revised text"
	require.NoError(t, store.Add(ctx, doc, "patient-1"))

	count, err := store.Count(ctx, "patient-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "re-adding the same id must not duplicate the row")

	results, err := store.Search(ctx, "revised text", WithOwner("patient-1"))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "revised text", results[0].Document.Text)
}

func TestStoreDeleteIntegration(t *testing.T) {
	ctx := context.Background()
	store := setupIntegrationStore(t)

	require.NoError(t, store.Add(ctx, document.Document{ID: "gone", Text: "to be removed"}, "patient-1"))
	require.NoError(t, store.Delete(ctx, "gone"))

	count, err := store.Count(ctx, "patient-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Deleting an absent id is a no-op.
	require.NoError(t, store.Delete(ctx, "gone"))
}
