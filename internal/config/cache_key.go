package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// IncompleteSnapshotKey returns the durable-store slot holding the
// in-progress session snapshot used for crash recovery.
func (r *CacheKeyStruct) IncompleteSnapshotKey() string {
	return "session:incomplete_snapshot"
}

// CandidateKey returns the durable-store key for a candidate record.
func (r *CacheKeyStruct) CandidateKey(candidateID string) string {
	return fmt.Sprintf("candidate:%s", candidateID)
}

// ArchivedSessionKey returns the durable-store key for an archived
// completed session snapshot.
func (r *CacheKeyStruct) ArchivedSessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:archived", sessionID)
}

// BroadcastChannel returns the pub/sub channel name for session
// lifecycle events.
func (r *CacheKeyStruct) BroadcastChannel() string {
	return "swipe-interview-assistant"
}

// BroadcastLastMessageKey returns the durable-store marker key used by
// the store-polling broadcast fallback.
func (r *CacheKeyStruct) BroadcastLastMessageKey() string {
	return "swipe-interview-assistant:last"
}

var CacheKey = NewCacheKeyStruct()
