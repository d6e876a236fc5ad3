package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/sibylhq/sibyl/internal/log"
)

// Snapshotter persists a cleared session's turns. Consumer-defined so
// the registry works against PostgreSQL in production and a fake in
// tests.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, sessionID, name string, turns []Turn) error
}

// Registry is the process-wide session store. Sessions are keyed by id
// and evicted after sitting idle for the configured TTL; every
// GetOrCreate refreshes the clock.
//
// Operations on different sessions never block one another: the
// registry lock covers only the lookup, and each session carries its
// own lock for turn operations.
type Registry struct {
	mu       sync.Mutex
	sessions *gocache.Cache
	capacity int
	store    Snapshotter
	logger   log.Logger
}

// NewRegistry creates a registry whose sessions hold capacity turns and
// expire after ttl without access. A nil store disables snapshot
// persistence; clears still empty the in-memory turns.
func NewRegistry(capacity int, ttl time.Duration, store Snapshotter, logger log.Logger) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		sessions: gocache.New(ttl, ttl/2),
		capacity: capacity,
		store:    store,
		logger:   logger,
	}
}

// GetOrCreate returns the session for id, creating it when absent. An
// empty id gets a freshly generated one. Never fails; the returned id
// is always non-empty.
func (r *Registry) GetOrCreate(id string) (string, *Session) {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.sessions.Get(id); ok {
		sess := cached.(*Session)
		// Refresh the idle TTL on every access.
		r.sessions.Set(id, sess, gocache.DefaultExpiration)
		return id, sess
	}

	sess := NewSession(r.capacity)
	r.sessions.Set(id, sess, gocache.DefaultExpiration)
	r.logger.Debug("session created", "session_id", id)
	return id, sess
}

// Lookup returns the session for id without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	return cached.(*Session), true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.ItemCount()
}

// SnapshotAndClear persists the session's turns under name and empties
// the in-memory history. It returns false, touching nothing, when the
// session is unknown or has zero turns.
//
// The durable write is best-effort: a failure is logged and the
// in-memory turns are removed anyway, so callers needing a persistence
// guarantee cannot rely on this path alone. An empty name defaults to
// "Conversation-" plus the session id prefix.
func (r *Registry) SnapshotAndClear(ctx context.Context, id, name string) bool {
	sess, ok := r.Lookup(id)
	if !ok || sess.Len() == 0 {
		return false
	}

	if name == "" {
		name = defaultSnapshotName(id)
	}

	turns := sess.Turns()
	if r.store != nil {
		if err := r.store.SaveSnapshot(ctx, id, name, turns); err != nil {
			r.logger.Warn("conversation snapshot write failed",
				"session_id", id,
				"name", name,
				"error", err)
		}
	}

	sess.drain()
	r.logger.Info("conversation cleared",
		"session_id", id,
		"name", name,
		"turns", len(turns))
	return true
}

// defaultSnapshotName derives a snapshot name from the session id
// prefix, e.g. "Conversation-1a2b3c4d".
func defaultSnapshotName(id string) string {
	prefix := id
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "Conversation-" + prefix
}
