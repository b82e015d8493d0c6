package core

import "time"

// SessionState carries the transient per-session fields that belong in an
// undo snapshot but are not persisted with the board.
type SessionState struct {
	SelectionIDs     []string
	DraftAttachments []string
	PendingReplies   int
	Warning          string
}

// Clone returns a deep copy of the session state.
func (s SessionState) Clone() SessionState {
	s.SelectionIDs = append([]string(nil), s.SelectionIDs...)
	s.DraftAttachments = append([]string(nil), s.DraftAttachments...)
	return s
}

// Snapshot is an immutable capture of a board plus the transient session
// state, taken just before a mutation. Undo and redo restore from these.
type Snapshot struct {
	Board   Board
	Session SessionState

	// Key is the coalescing key the snapshot was recorded under, if any.
	Key string

	TakenAt time.Time
}

// NewSnapshot deep-clones the given board and session so later mutations
// cannot leak into the capture.
func NewSnapshot(b *Board, session SessionState, key string, at time.Time) Snapshot {
	return Snapshot{
		Board:   b.Clone(),
		Session: session.Clone(),
		Key:     key,
		TakenAt: at,
	}
}
