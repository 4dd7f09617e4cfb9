package store

import "time"

// Status is the lifecycle state of a stored session.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// InterruptedReason is recorded for sessions still processing when the
// server restarts.
const InterruptedReason = "Server stopped before the session finished"

// Session is one processing request and its outcome.
type Session struct {
	ID              string    `json:"session_id"`
	Status          Status    `json:"status"`
	VideoName       string    `json:"video_name,omitempty"`
	FrameCount      int       `json:"frame_count"`
	RequestedFrames int       `json:"requested_frames"`
	Shortfall       int       `json:"shortfall"`
	Remote          bool      `json:"remote"`
	URLs            []string  `json:"frame_urls"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Outcome is what a finished pipeline reports back to the store.
type Outcome struct {
	FrameCount      int
	RequestedFrames int
	Remote          bool
	URLs            []string
}

// Terminal reports whether the session has finished.
func (s Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}
