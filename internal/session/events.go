package session

import "github.com/swipehq/interview-backend/internal/model"

// EventType enumerates session lifecycle events emitted by the machine.
// The values double as broadcast message types.
type EventType string

const (
	EventSessionStarted   EventType = "session:started"
	EventSessionUpdated   EventType = "session:updated"
	EventSessionCompleted EventType = "session:completed"
	EventCandidateAdded   EventType = "candidate:added"
)

// Event carries a deep-copied payload so subscribers can never mutate
// machine state.
type Event struct {
	Type      EventType
	Snapshot  *model.SessionSnapshot
	Candidate *model.Candidate
}
