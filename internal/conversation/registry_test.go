package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sibylhq/sibyl/internal/log"
)

type fakeSnapshotter struct {
	mu    sync.Mutex
	err   error
	calls []savedSnapshot
}

type savedSnapshot struct {
	sessionID string
	name      string
	turns     []Turn
}

func (f *fakeSnapshotter) SaveSnapshot(_ context.Context, sessionID, name string, turns []Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, savedSnapshot{sessionID, name, turns})
	return f.err
}

func (f *fakeSnapshotter) saved() []savedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestRegistry(store Snapshotter) *Registry {
	return NewRegistry(DefaultCapacity, time.Hour, store, log.NewNop())
}

func TestGetOrCreateGeneratesID(t *testing.T) {
	r := newTestRegistry(nil)

	id, sess := r.GetOrCreate("")
	if id == "" {
		t.Fatal("generated id is empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated id %q is not a uuid: %v", id, err)
	}
	if sess == nil {
		t.Fatal("session is nil")
	}
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	r := newTestRegistry(nil)

	id, sess := r.GetOrCreate("")
	sess.Append(RoleUser, "hello")

	id2, sess2 := r.GetOrCreate(id)
	if id2 != id {
		t.Errorf("id changed: %q -> %q", id, id2)
	}
	if sess2 != sess {
		t.Error("existing session not returned unchanged")
	}
	if sess2.Len() != 1 {
		t.Errorf("existing session lost turns: Len = %d", sess2.Len())
	}
}

func TestGetOrCreateConcurrentSameID(t *testing.T) {
	r := newTestRegistry(nil)

	const id = "shared-session"
	sessions := make([]*Session, 20)

	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, sessions[i] = r.GetOrCreate(id)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(sessions); i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("concurrent GetOrCreate produced distinct sessions for one id")
		}
	}
}

func TestSnapshotAndClearUnknownSession(t *testing.T) {
	store := &fakeSnapshotter{}
	r := newTestRegistry(store)

	if r.SnapshotAndClear(context.Background(), "never-seen", "") {
		t.Error("clearing an unknown session should report false")
	}
	if len(store.saved()) != 0 {
		t.Error("unknown session must not trigger a durable write")
	}
}

func TestSnapshotAndClearEmptySession(t *testing.T) {
	store := &fakeSnapshotter{}
	r := newTestRegistry(store)

	id, _ := r.GetOrCreate("")
	if r.SnapshotAndClear(context.Background(), id, "") {
		t.Error("clearing a session with zero turns should report false")
	}
	if len(store.saved()) != 0 {
		t.Error("empty session must not trigger a durable write")
	}
}

func TestSnapshotAndClear(t *testing.T) {
	store := &fakeSnapshotter{}
	r := newTestRegistry(store)

	id, sess := r.GetOrCreate("")
	sess.Append(RoleUser, "question")
	sess.Append(RoleAssistant, "answer")

	if !r.SnapshotAndClear(context.Background(), id, "my-checkup") {
		t.Fatal("SnapshotAndClear = false, want true")
	}

	saved := store.saved()
	if len(saved) != 1 {
		t.Fatalf("snapshots written = %d, want 1", len(saved))
	}
	if saved[0].name != "my-checkup" || len(saved[0].turns) != 2 {
		t.Errorf("snapshot = %+v", saved[0])
	}

	if sess.Len() != 0 {
		t.Errorf("session still holds %d turns after clear", sess.Len())
	}
}

func TestSnapshotAndClearDefaultName(t *testing.T) {
	store := &fakeSnapshotter{}
	r := newTestRegistry(store)

	id, sess := r.GetOrCreate("")
	sess.Append(RoleUser, "hi")

	r.SnapshotAndClear(context.Background(), id, "")

	want := "Conversation-" + id[:8]
	if got := store.saved()[0].name; got != want {
		t.Errorf("default name = %q, want %q", got, want)
	}
}

func TestSnapshotAndClearBestEffort(t *testing.T) {
	store := &fakeSnapshotter{err: errors.New("database down")}
	r := newTestRegistry(store)

	id, sess := r.GetOrCreate("")
	sess.Append(RoleUser, "hi")

	// The write fails but the clear still happens and reports success.
	if !r.SnapshotAndClear(context.Background(), id, "") {
		t.Fatal("SnapshotAndClear = false, want true despite write failure")
	}
	if sess.Len() != 0 {
		t.Errorf("session still holds %d turns, clear must not depend on the durable write", sess.Len())
	}
}

func TestRegistryIsolatesSessions(t *testing.T) {
	r := newTestRegistry(nil)

	idA, sessA := r.GetOrCreate("")
	idB, sessB := r.GetOrCreate("")

	if idA == idB {
		t.Fatal("two generated ids collided")
	}
	sessA.Append(RoleUser, "for a")

	if sessB.Len() != 0 {
		t.Error("turn leaked across sessions")
	}
}

func TestRegistryTTLEviction(t *testing.T) {
	r := NewRegistry(DefaultCapacity, 10*time.Millisecond, nil, log.NewNop())

	id, sess := r.GetOrCreate("")
	sess.Append(RoleUser, "hi")

	time.Sleep(50 * time.Millisecond)

	if _, ok := r.Lookup(id); ok {
		t.Error("idle session survived past its TTL")
	}
}
