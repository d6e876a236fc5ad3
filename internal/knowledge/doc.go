// Package knowledge is the durable document store: PostgreSQL + pgvector
// persistence with embedding-based similarity search.
//
// Documents are embedded on insert and queried by cosine distance. The
// Store reports raw cosine distance in results (lower = more similar,
// range [0, 2]); relevance normalization for ranking happens in the
// retrieval layer, not here.
//
// The Store depends on two consumer-defined interfaces: Querier for
// database access (satisfied by *pgxpool.Pool) and Embedder for vector
// generation, keeping it testable without a live database or model.
package knowledge
