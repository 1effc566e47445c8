package audit

import (
	"context"
	"time"
)

// EventType classifies a journal entry.
type EventType string

const (
	// EventSessionCreated records directory admission.
	EventSessionCreated EventType = "session_created"

	// EventSessionPaired records Side B's arrival.
	EventSessionPaired EventType = "session_paired"

	// EventTurnCompleted records one successful exchange.
	EventTurnCompleted EventType = "turn_completed"

	// EventSessionClosed records the close, with its reason in Detail.
	EventSessionClosed EventType = "session_closed"
)

// Event is one redacted journal entry. It carries no utterance content.
type Event struct {
	// ID is a unique event identifier.
	ID string `json:"id"`

	// Type classifies the event.
	Type EventType `json:"type"`

	// SessionID names the session the event belongs to.
	SessionID string `json:"session_id"`

	// Side is the participant slot involved, when applicable ("A", "B").
	Side string `json:"side,omitempty"`

	// Detail carries the close reason or other short metadata.
	Detail string `json:"detail,omitempty"`

	// UtteranceBytes is the size of the exchanged utterance, when applicable.
	UtteranceBytes int `json:"utterance_bytes,omitempty"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Backend persists journal entries.
type Backend interface {
	// Append stores one event.
	Append(ctx context.Context, event *Event) error

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]*Event, error)

	// Close releases backend resources.
	Close() error
}
