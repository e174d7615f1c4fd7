package model

import "time"

type Session struct {
	ID             string        `db:"id" json:"id"`
	Name           string        `db:"name" json:"name"`
	OriginalIntent string        `db:"original_intent" json:"originalIntent"`
	FinalIntent    *string       `db:"final_intent" json:"finalIntent,omitempty"`
	Status         SessionStatus `db:"status" json:"status"`
	StartedAt      *time.Time    `db:"started_at" json:"startedAt,omitempty"`
	EndedAt        *time.Time    `db:"ended_at" json:"endedAt,omitempty"`
	EndedBy        *EndedBy      `db:"ended_by" json:"endedBy,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
}

// DisplayIntent returns the confirmed intent, falling back to the original
// when the user never confirmed one.
func (s *Session) DisplayIntent() string {
	if s.FinalIntent != nil && *s.FinalIntent != "" {
		return *s.FinalIntent
	}
	return s.OriginalIntent
}

type CreateSessionParams struct {
	Name   string
	Intent string
}

// SessionEvent records a single pause or resume transition. Events are
// append-only; ordered by id they alternate paused/resumed starting with
// paused, which the session state machine guarantees by rejecting
// pause-while-paused and resume-while-active.
type SessionEvent struct {
	ID        int64            `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"sessionId"`
	EventType SessionEventType `db:"event_type" json:"eventType"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}
