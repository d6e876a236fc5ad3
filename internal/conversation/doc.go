// Package conversation is the process-wide conversation memory store.
//
// Each session holds a bounded rolling window of chat turns: appending
// past capacity evicts the oldest turn first. Sessions live in an
// in-memory registry keyed by session id, with idle-TTL eviction so
// abandoned sessions do not accumulate forever.
//
// Clearing a session snapshots its turns to durable storage first, but
// only best-effort: the in-memory turns are removed whether or not the
// durable write succeeds.
package conversation
