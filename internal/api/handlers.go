package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"turntable/internal/fileutil"
	"turntable/internal/frames"
	"turntable/internal/logging"
	"turntable/internal/services"
	"turntable/internal/session"
	"turntable/internal/staging"
	"turntable/internal/store"
)

const uploadField = "file"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		default:
			w.Header().Set("Retry-After", "30")
			s.respond(w, r, http.StatusServiceUnavailable, ErrorResponse{Detail: "server busy: too many sessions in progress"})
			return
		}
	}

	ctx := r.Context()
	logger := logging.WithContext(ctx, s.logger)
	limit := int64(s.cfg.API.MaxUploadMB) << 20
	if limit > 0 {
		// Allow for multipart framing around the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	}

	part, err := findFilePart(r)
	if err != nil {
		s.respond(w, r, http.StatusBadRequest, ErrorResponse{Detail: "Processing failed: " + err.Error()})
		return
	}
	defer part.Close()

	ws, err := s.pipeline.Prepare(ctx, part.FileName(), uploadExt(part.FileName()))
	if errors.Is(err, session.ErrDraining) {
		w.Header().Set("Retry-After", "30")
		s.respond(w, r, http.StatusServiceUnavailable, ErrorResponse{Detail: "server is shutting down"})
		return
	}
	if err != nil {
		logger.Error("failed to prepare session", logging.Error(err))
		s.respond(w, r, http.StatusInternalServerError, ErrorResponse{Detail: "Processing failed: " + services.Cause(err)})
		return
	}
	logger = logger.With(logging.String(logging.FieldSessionID, ws.SessionID))

	size, err := fileutil.SaveStream(ws.Video, part, limit)
	if err != nil {
		var maxErr *http.MaxBytesError
		marker := services.ErrTransient
		if errors.Is(err, fileutil.ErrTooLarge) || errors.As(err, &maxErr) {
			marker = services.ErrValidation
			err = fmt.Errorf("video exceeds %d MB", s.cfg.API.MaxUploadMB)
		}
		err = services.Wrap(marker, "upload", "save video", "", err)
		s.pipeline.Fail(ctx, ws, err)
		s.fail(w, r, ws.SessionID, err)
		return
	}
	logger.Info("video received",
		logging.String("filename", part.FileName()),
		logging.Int64("bytes", size),
	)

	result, err := s.pipeline.Process(ctx, ws)
	if err != nil {
		s.fail(w, r, ws.SessionID, err)
		return
	}
	s.respond(w, r, http.StatusOK, result)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	s.respond(w, r, services.HTTPStatus(err), ErrorResponse{
		SessionID: sessionID,
		Detail:    "Processing failed: " + services.Cause(err),
	})
}

// findFilePart streams the multipart body up to the upload field without
// buffering other parts to disk.
func findFilePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("expected multipart/form-data upload: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing %q field", uploadField)
		}
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		if part.FormName() == uploadField {
			return part, nil
		}
		_ = part.Close()
	}
}

// uploadExt keeps a short alphanumeric extension from the client file name.
func uploadExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ".mp4"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".mp4"
		}
	}
	return ext
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	name := r.PathValue("filename")
	if !staging.ValidSessionID(sessionID) ||
		filepath.Base(name) != name ||
		!strings.HasPrefix(name, frames.ExportPrefix) ||
		!frames.Supported(name) {
		s.respond(w, r, http.StatusNotFound, ErrorResponse{Detail: "frame not found"})
		return
	}
	path := filepath.Join(staging.OutputDir(s.cfg.Paths.StagingDir, sessionID), name)
	f, err := os.Open(path)
	if err != nil {
		s.respond(w, r, http.StatusNotFound, ErrorResponse{Detail: "frame not found"})
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.respond(w, r, http.StatusNotFound, ErrorResponse{Detail: "frame not found"})
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respond(w, r, http.StatusOK, SessionListResponse{Sessions: []Session{}})
		return
	}
	query := r.URL.Query()
	limit := 50
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.respond(w, r, http.StatusBadRequest, ErrorResponse{Detail: "invalid limit"})
			return
		}
		limit = parsed
	}
	var statuses []store.Status
	for _, value := range query["status"] {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			statuses = append(statuses, store.Status(trimmed))
		}
	}
	sessions, err := s.store.List(r.Context(), limit, statuses...)
	if err != nil {
		s.respond(w, r, http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
		return
	}
	s.respond(w, r, http.StatusOK, SessionListResponse{Sessions: FromSessions(sessions)})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respond(w, r, http.StatusNotFound, ErrorResponse{Detail: "session not found"})
		return
	}
	sess, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status := services.HTTPStatus(err)
		detail := err.Error()
		if status == http.StatusNotFound {
			detail = "session not found"
		}
		s.respond(w, r, status, ErrorResponse{SessionID: r.PathValue("id"), Detail: detail})
		return
	}
	s.respond(w, r, http.StatusOK, SessionResponse{Session: FromSession(sess)})
}
