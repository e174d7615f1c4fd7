package model

type SessionStatus string

const (
	SessionStatusCreated SessionStatus = "created"
	SessionStatusActive  SessionStatus = "active"
	SessionStatusPaused  SessionStatus = "paused"
	SessionStatusEnded   SessionStatus = "ended"
)

// Terminal reports whether no further transitions may leave this status.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusEnded
}

type EndedBy string

const (
	EndedByUser EndedBy = "user"
	EndedByAuto EndedBy = "auto"
)

type SessionEventType string

const (
	SessionEventPaused  SessionEventType = "paused"
	SessionEventResumed SessionEventType = "resumed"
)

type ReportStatus string

const (
	ReportStatusGenerating ReportStatus = "generating"
	ReportStatusReady      ReportStatus = "ready"
	ReportStatusFailed     ReportStatus = "failed"
)
