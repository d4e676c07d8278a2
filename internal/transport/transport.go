// Package transport defines the outbound side of the relay: delivering a
// payload to one recipient and replaying an event onto a copy a recipient
// already holds.
//
// Errors are split in two classes. ErrUnreachable (possibly wrapped) means
// the recipient can no longer be reached and retrying is pointless; every
// other error is treated as transient.
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnreachable marks a permanent delivery failure for a recipient.
var ErrUnreachable = errors.New("transport: recipient unreachable")

// EventKind is the kind of action mirrored onto delivered copies.
type EventKind string

const (
	EventReaction EventKind = "reaction"
	EventDelete   EventKind = "delete"
	EventPin      EventKind = "pin"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventReaction, EventDelete, EventPin:
		return true
	}
	return false
}

// Event is an action observed on one copy.
type Event struct {
	Kind    EventKind `json:"kind"`
	Emoji   string    `json:"emoji,omitempty"`
	ActorID int64     `json:"actor_id"`
}

// Client delivers payloads and replays events.
type Client interface {
	Send(ctx context.Context, recipientID int64, payload json.RawMessage) (wireID int64, err error)
	Replay(ctx context.Context, recipientID, wireID int64, ev Event) error
}

// IsPermanent reports whether err means the recipient is unreachable.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
