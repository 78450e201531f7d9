package audit

import "time"

// Event is emitted from domain logic to capture key consent-lifecycle actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	ClientID  string    `json:"client_id,omitempty"`
	// ArrangementID is the opaque external id, never the internal subject.
	ArrangementID string `json:"arrangement_id,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	DeviceName    string `json:"device_name,omitempty"`
}

// EventAction names the audited actions in the arrangement lifecycle.
type EventAction string

const (
	EventPARSubmitted       EventAction = "par_request_submitted"
	EventPARRejected        EventAction = "par_request_rejected"
	EventArrangementCreated EventAction = "arrangement_created"
	EventArrangementRevoked EventAction = "arrangement_revoked"
	EventRevocationDenied   EventAction = "arrangement_revocation_denied"
	EventIntrospection      EventAction = "refresh_token_introspected"
)
