package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sibylhq/sibyl/internal/conversation"
	"github.com/sibylhq/sibyl/internal/log"
)

func newTestRegistry() *conversation.Registry {
	return conversation.NewRegistry(conversation.DefaultCapacity, time.Hour, nil, log.NewNop())
}

func TestSessionStateRoundTrip(t *testing.T) {
	state, err := newSessionStateAt(t.TempDir())
	if err != nil {
		t.Fatalf("newSessionStateAt() error = %v", err)
	}

	// No state yet.
	rec, err := state.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.SessionID != "" || len(rec.Turns) != 0 {
		t.Fatalf("Load() = %+v, want zero record", rec)
	}

	want := sessionRecord{
		SessionID: "9f0c6c3a-0000-4000-8000-000000000001",
		Turns: []conversation.Turn{
			{Role: conversation.RoleUser, Text: "what is pgvector?"},
			{Role: conversation.RoleAssistant, Text: "a Postgres extension"},
		},
	}
	if err := state.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec, err = state.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.SessionID != want.SessionID {
		t.Fatalf("SessionID = %q, want %q", rec.SessionID, want.SessionID)
	}
	if len(rec.Turns) != 2 || rec.Turns[0] != want.Turns[0] || rec.Turns[1] != want.Turns[1] {
		t.Fatalf("Turns = %+v, want %+v", rec.Turns, want.Turns)
	}

	if err := state.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	rec, err = state.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.SessionID != "" {
		t.Fatalf("Load() = %+v after Reset, want zero record", rec)
	}

	// Reset with no state is a no-op.
	if err := state.Reset(); err != nil {
		t.Fatalf("Reset() on empty state error = %v", err)
	}
}

func TestSessionStateLoadsBareID(t *testing.T) {
	dir := t.TempDir()
	state, err := newSessionStateAt(dir)
	if err != nil {
		t.Fatalf("newSessionStateAt() error = %v", err)
	}

	// State files from before turns were persisted hold only the id.
	if err := os.WriteFile(filepath.Join(dir, sessionFileName), []byte("legacy-session-id\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rec, err := state.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.SessionID != "legacy-session-id" {
		t.Fatalf("SessionID = %q, want %q", rec.SessionID, "legacy-session-id")
	}
	if len(rec.Turns) != 0 {
		t.Fatalf("Turns = %+v, want none", rec.Turns)
	}
}

// Conversation continuity across one-shot invocations: turns captured
// from one process's registry must reappear in the next process's.
func TestSessionContinuityAcrossInvocations(t *testing.T) {
	state, err := newSessionStateAt(t.TempDir())
	if err != nil {
		t.Fatalf("newSessionStateAt() error = %v", err)
	}

	// First invocation: a session accumulates an exchange.
	first := newTestRegistry()
	id, sess := first.GetOrCreate("")
	sess.Append(conversation.RoleUser, "what is pgvector?")
	sess.Append(conversation.RoleAssistant, "a Postgres extension")

	if err := state.Save(captureSession(first, id)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Second invocation: fresh process, fresh registry.
	rec, err := state.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second := newTestRegistry()
	restoreSession(second, rec)

	gotID, restored := second.GetOrCreate(rec.SessionID)
	if gotID != id {
		t.Fatalf("session id = %q, want %q", gotID, id)
	}
	turns := restored.Turns()
	if len(turns) != 2 {
		t.Fatalf("restored %d turns, want 2", len(turns))
	}
	if turns[0].Text != "what is pgvector?" || turns[1].Text != "a Postgres extension" {
		t.Fatalf("restored turns = %+v", turns)
	}
}

func TestRestoreSessionSkipsEmptyRecord(t *testing.T) {
	registry := newTestRegistry()

	restoreSession(registry, sessionRecord{})
	restoreSession(registry, sessionRecord{SessionID: "id-without-turns"})

	if registry.Len() != 0 {
		t.Fatalf("registry has %d sessions, want 0", registry.Len())
	}
}

func TestCaptureSessionUnknownID(t *testing.T) {
	rec := captureSession(newTestRegistry(), "never-seen")
	if rec.SessionID != "never-seen" || len(rec.Turns) != 0 {
		t.Fatalf("captureSession = %+v", rec)
	}
}

func TestSplitURLs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "https://a.example", []string{"https://a.example"}},
		{"multiple", "https://a.example,https://b.example", []string{"https://a.example", "https://b.example"}},
		{"whitespace and empties", " https://a.example , ,https://b.example ", []string{"https://a.example", "https://b.example"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitURLs(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitURLs(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitURLs(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}
