package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/sibylhq/sibyl/internal/conversation"
)

// sessionFileName holds the current session under ~/.sibyl.
const sessionFileName = "current_session"

// sessionRecord is the persisted conversation state. Each invocation
// runs in a fresh process with an empty in-memory registry, so the
// turns travel with the session id to keep follow-up questions in the
// same conversation.
type sessionRecord struct {
	SessionID string              `json:"session_id"`
	Turns     []conversation.Turn `json:"turns,omitempty"`
}

// sessionState persists the conversation between CLI invocations.
// Concurrent sibyl processes coordinate through a file lock next to
// the state file.
type sessionState struct {
	path string
	lock *flock.Flock
}

func newSessionState() (*sessionState, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	return newSessionStateAt(filepath.Join(home, ".sibyl"))
}

func newSessionStateAt(dir string) (*sessionState, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	path := filepath.Join(dir, sessionFileName)
	return &sessionState{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Load returns the stored session record, or a zero record when none
// exists. State files written before turns were persisted hold a bare
// session id; those load with empty turns.
func (s *sessionState) Load() (sessionRecord, error) {
	if err := s.lock.Lock(); err != nil {
		return sessionRecord{}, fmt.Errorf("locking session state: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return sessionRecord{}, nil
	}
	if err != nil {
		return sessionRecord{}, fmt.Errorf("reading session state: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return sessionRecord{SessionID: strings.TrimSpace(string(data))}, nil
	}
	return rec, nil
}

// Save stores the session record for the next invocation.
func (s *sessionState) Save(rec sessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking session state: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	return nil
}

// Reset removes the stored session.
func (s *sessionState) Reset() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking session state: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session state: %w", err)
	}
	return nil
}

// restoreSession reseeds the in-process registry from a persisted
// record so the engine sees the prior turns.
func restoreSession(registry *conversation.Registry, rec sessionRecord) {
	if rec.SessionID == "" || len(rec.Turns) == 0 {
		return
	}
	_, sess := registry.GetOrCreate(rec.SessionID)
	for _, turn := range rec.Turns {
		sess.Append(turn.Role, turn.Text)
	}
}

// captureSession reads the session's turns back out of the registry
// for persisting.
func captureSession(registry *conversation.Registry, sessionID string) sessionRecord {
	rec := sessionRecord{SessionID: sessionID}
	if sess, ok := registry.Lookup(sessionID); ok {
		rec.Turns = sess.Turns()
	}
	return rec
}
