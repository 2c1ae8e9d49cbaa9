package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types delivered over the notification bus.
const (
	EventFileUploaded      = "file.uploaded"
	EventFileDeleted       = "file.deleted"
	EventFileSharedWithYou = "file.shared_with_you"
	EventShareRevoked      = "share.revoked"
	EventPing              = "ping"
)

// Event is one notification frame addressed to a single user. Payload must
// never carry key material.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	UserID  string    `json:"user_id"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// NewEvent stamps a new event with a random id and the current time.
func NewEvent(userID, typ string, payload any) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    typ,
		UserID:  userID,
		At:      time.Now().UTC(),
		Payload: payload,
	}
}
