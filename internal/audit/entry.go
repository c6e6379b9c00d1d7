// Package audit records who changed which entity, when and how. Entries are
// append-only: nothing in this package or its stores updates or deletes them.
package audit

import (
	"encoding/json"
	"time"
)

// Action is the kind of mutation an entry describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// EntityUser is the entity type tag for identity records.
const EntityUser = "User"

// Entry is one persisted audit record.
type Entry struct {
	ID         int64           `json:"id"`
	ActorID    *int64          `json:"actor_id"`
	Action     Action          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	Details    json.RawMessage `json:"details"`
	IPAddress  string          `json:"ip_address,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`

	// Actor is filled in by readers when the acting user still exists.
	Actor *Actor `json:"actor,omitempty"`
}

// Actor summarises the user behind an entry.
type Actor struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Event is what callers hand to a Recorder. Payload is serialised to JSON.
type Event struct {
	Action     Action
	EntityType string
	EntityID   int64
	Payload    any

	// ActorID is nil for system actions such as self-registration.
	ActorID   *int64
	IPAddress string
	UserAgent string
	RequestID string
}

// Change is the before and after value of one field in an update payload.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}
