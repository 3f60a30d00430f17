package domain

import "time"

// Event types broadcast to live subscribers.
const (
	EventDIDRegistered     = "did.registered"
	EventDIDStatusUpdated  = "did.status_updated"
	EventDocumentNotarized = "document.notarized"
)

// Event is a record change pushed to stream subscribers.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}
