package storage

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id is unknown to the store.
var ErrRunNotFound = errors.New("run not found")

// Message is one persisted chat turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is the chat history of one conversation keyed by an opaque run id.
type Run struct {
	ID        string    `json:"run_id"`
	UserID    string    `json:"user_id,omitempty"`
	AgentName string    `json:"agent_name,omitempty"`
	Messages  []Message `json:"messages"`
	Created   time.Time `json:"created_at"`
	Updated   time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	cp := *r
	cp.Messages = append([]Message(nil), r.Messages...)
	return &cp
}

// LastMessages returns the last n messages (all when n <= 0).
func (r *Run) LastMessages(n int) []Message {
	if n <= 0 || n >= len(r.Messages) {
		return append([]Message(nil), r.Messages...)
	}
	return append([]Message(nil), r.Messages[len(r.Messages)-n:]...)
}

// Store persists chat history. Run ids are treated as pass-through strings.
type Store interface {
	// Create registers run if its id is new and returns the stored run.
	// An existing run is returned unchanged.
	Create(ctx context.Context, run Run) (*Run, error)

	// Get returns the run or ErrRunNotFound.
	Get(ctx context.Context, runID string) (*Run, error)

	// ListRunIDs returns the run ids of userID, newest first.
	ListRunIDs(ctx context.Context, userID string) ([]string, error)

	// Append adds messages to an existing run.
	Append(ctx context.Context, runID string, msgs ...Message) error
}

// Options configure store implementations.
type Options struct {
	// Now supplies timestamps; tests inject a deterministic clock.
	Now func() time.Time
}

func defaultOptions() Options {
	return Options{Now: func() time.Time { return time.Now().UTC() }}
}
