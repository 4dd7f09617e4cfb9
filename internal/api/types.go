package api

import (
	"time"

	"turntable/internal/store"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse is returned for failed sessions and rejected requests.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Detail    string `json:"detail"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// Session describes a stored session in a transport-friendly format.
type Session struct {
	SessionID       string   `json:"session_id"`
	Status          string   `json:"status"`
	VideoName       string   `json:"video_name,omitempty"`
	FrameCount      int      `json:"frame_count"`
	RequestedFrames int      `json:"requested_frames"`
	Shortfall       int      `json:"shortfall"`
	Remote          bool     `json:"remote"`
	FrameURLs       []string `json:"frame_urls"`
	Error           string   `json:"error,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
}

// SessionListResponse wraps a list of sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionResponse wraps one session.
type SessionResponse struct {
	Session Session `json:"session"`
}

// FromSession converts a store record.
func FromSession(s *store.Session) Session {
	if s == nil {
		return Session{}
	}
	urls := s.URLs
	if urls == nil {
		urls = []string{}
	}
	return Session{
		SessionID:       s.ID,
		Status:          string(s.Status),
		VideoName:       s.VideoName,
		FrameCount:      s.FrameCount,
		RequestedFrames: s.RequestedFrames,
		Shortfall:       s.Shortfall,
		Remote:          s.Remote,
		FrameURLs:       urls,
		Error:           s.Error,
		CreatedAt:       formatTime(s.CreatedAt),
		UpdatedAt:       formatTime(s.UpdatedAt),
	}
}

// FromSessions converts a slice of store records.
func FromSessions(sessions []*store.Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, FromSession(s))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
