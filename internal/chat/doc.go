// Package chat is the answer orchestrator. It wires document loading,
// retrieval, context assembly, and conversation memory into the three
// operations callers see: browser-mode RAG over a URL list (or a web
// search), database-mode RAG over the durable store, and conversation
// clearing.
//
// The orchestrator records the user turn before the model call and the
// assistant turn after it. A failed model call therefore leaves the
// user turn in memory; callers see the failure but the question stays
// recorded.
package chat
