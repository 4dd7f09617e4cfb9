package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FieldSessionID keys the turntable session id on every session record.
const FieldSessionID = "session_id"

// sessionIDHandler stamps session_id onto records exactly once, discarding
// any session_id the caller attaches itself.
type sessionIDHandler struct {
	slog.Handler
	id slog.Attr
}

func newSessionIDHandler(next slog.Handler, sessionID string) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &sessionIDHandler{Handler: next, id: String(FieldSessionID, sessionID)}
}

func (h *sessionIDHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != FieldSessionID {
			out.AddAttrs(a)
		}
		return true
	})
	out.AddAttrs(h.id)
	return h.Handler.Handle(ctx, out)
}

func (h *sessionIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	kept := attrs[:0:0]
	for _, a := range attrs {
		if a.Key != FieldSessionID {
			kept = append(kept, a)
		}
	}
	return &sessionIDHandler{Handler: h.Handler.WithAttrs(kept), id: h.id}
}

func (h *sessionIDHandler) WithGroup(name string) slog.Handler {
	return &sessionIDHandler{Handler: h.Handler.WithGroup(name), id: h.id}
}

// SessionLogPath is where NewSessionLogger writes the log for sessionID.
func SessionLogPath(dir, sessionID string) string {
	return filepath.Join(dir, sessionID+".log")
}

// NewSessionLogger returns a logger that writes through base and, when dir
// is set, also records every level as JSON to SessionLogPath(dir, id).
// All records carry session_id. Close the returned closer when the session
// ends.
func NewSessionLogger(base *slog.Logger, dir, sessionID string) (*slog.Logger, io.Closer, error) {
	if base == nil {
		base = NewNop()
	}
	if strings.TrimSpace(dir) == "" {
		return slog.New(newSessionIDHandler(base.Handler(), sessionID)), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create session log directory: %w", err)
	}
	f, err := os.OpenFile(SessionLogPath(dir, sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open session log: %w", err)
	}
	h := TeeHandler(base.Handler(), newJSONHandler(f, slog.LevelDebug, false))
	return slog.New(newSessionIDHandler(h, sessionID)), f, nil
}
