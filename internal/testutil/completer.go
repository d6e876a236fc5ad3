package testutil

import (
	"context"
	"sync"

	"github.com/sibylhq/sibyl/internal/conversation"
)

// ScriptedCompleter is a deterministic stand-in for the language-model
// completion service. It returns queued answers in order, falling back
// to a fixed default when the script runs out, and records every call
// for assertions.
type ScriptedCompleter struct {
	mu      sync.Mutex
	answers []string
	Default string
	Err     error

	Calls []CompleterCall
}

// CompleterCall captures the arguments of one Complete invocation.
type CompleterCall struct {
	System    string
	Turns     []conversation.Turn
	MaxTokens int
}

// NewScriptedCompleter queues the given answers.
func NewScriptedCompleter(answers ...string) *ScriptedCompleter {
	return &ScriptedCompleter{answers: answers, Default: "scripted answer"}
}

// Complete pops the next scripted answer.
func (c *ScriptedCompleter) Complete(_ context.Context, system string, turns []conversation.Turn, maxTokens int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]conversation.Turn, len(turns))
	copy(copied, turns)
	c.Calls = append(c.Calls, CompleterCall{System: system, Turns: copied, MaxTokens: maxTokens})

	if c.Err != nil {
		return "", c.Err
	}
	if len(c.answers) == 0 {
		return c.Default, nil
	}
	answer := c.answers[0]
	c.answers = c.answers[1:]
	return answer, nil
}
