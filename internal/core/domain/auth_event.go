package domain

import "time"

// AuthEventType is the auth operation an event records.
type AuthEventType string

const (
	AuthEventRegister AuthEventType = "register"
	AuthEventLogin    AuthEventType = "login"
	AuthEventRefresh  AuthEventType = "refresh"
)

// AuthOutcome is either success or failure.
type AuthOutcome string

const (
	OutcomeSuccess AuthOutcome = "success"
	OutcomeFailure AuthOutcome = "failure"
)

// AuthEvent is one entry of the append-only auth audit trail.
type AuthEvent struct {
	ID         string
	Type       AuthEventType
	Outcome    AuthOutcome
	Reason     string // internal reason, e.g. "password mismatch"
	Email      string
	UserID     int64 // zero when the identity is unknown
	IP         string
	RequestID  string
	OccurredAt time.Time
}
