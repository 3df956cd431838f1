package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated EventType = "user_created"
	EventUserUpdated EventType = "user_updated"
	EventUserDeleted EventType = "user_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserChangedPayload describes the identity fields a consumer may care about.
// PreviousUsername is set on updates that renamed the user.
type UserChangedPayload struct {
	Username         string `json:"username"`
	PreviousUsername string `json:"previous_username,omitempty"`
	Role             string `json:"role"`
}
