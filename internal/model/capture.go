package model

import "time"

// Capture is one observation of the foreground window at a point in time.
// The poller discards empty readings before writing, so both WindowTitle
// and AppName are always non-empty.
type Capture struct {
	ID          int64     `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"sessionId"`
	WindowTitle string    `db:"window_title" json:"windowTitle"`
	AppName     string    `db:"app_name" json:"appName"`
	CapturedAt  time.Time `db:"captured_at" json:"capturedAt"`
}

type CreateCaptureParams struct {
	SessionID   string
	WindowTitle string
	AppName     string
	CapturedAt  time.Time
}
