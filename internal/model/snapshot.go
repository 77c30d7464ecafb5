package model

import "time"

// SnapshotVersion is the current snapshot schema version. Loading a
// snapshot with any other version is rejected rather than silently
// defaulting fields.
const SnapshotVersion = 1

// SessionSnapshot is a point-in-time serialization of a Session used
// for crash recovery (the incomplete slot) and archival (append-only
// history). Archived snapshots are never mutated.
type SessionSnapshot struct {
	Version int `json:"version"`
	Session
	SavedAt   time.Time         `json:"saved_at"`
	Candidate *CandidateSummary `json:"candidate,omitempty"`
}
