// Package rag implements retrieval and context assembly.
//
// Two retriever variants share one interface:
//
//   - Index: an ephemeral in-memory index built fresh per request from
//     freshly loaded documents (browser and search modes)
//   - StoreRetriever: a thin adapter over the durable knowledge.Store
//     (database mode)
//
// Retrievers emit passages with a normalized relevance measure (higher
// is more relevant) regardless of whether the backend reports cosine
// similarity or cosine distance. The Assembler renders retained
// passages into a single numbered context string plus a de-duplicated
// source attribution list.
package rag
