package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"turntable/internal/config"
	"turntable/internal/logging"
	"turntable/internal/services"
)

const sessionColumns = "id, status, video_name, frame_count, requested_frames, shortfall, remote, urls_json, error_message, created_at, updated_at"

// Store manages session persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Open initializes or connects to the session database and applies migrations.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.StoreDBPath(), logger)
}

// OpenPath opens the database at path.
func OpenPath(path string, logger *slog.Logger) (*Store, error) {
	logger = logging.NewComponentLogger(logger, "store")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	version, err := migrateUp(db, Migrations(), logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("session store ready", logging.String("path", path), logging.Int("schema_version", int(version)))

	return &Store{db: db, path: path, logger: logger, now: time.Now}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// Create records a new session in the processing state.
func (s *Store) Create(ctx context.Context, id, videoName string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "create", "session id is required", nil)
	}
	ts := s.timestamp()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, video_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, StatusProcessing, nullableString(videoName), ts, ts,
	); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.Get(ctx, id)
}

// Complete marks a session finished and stores its published URLs.
func (s *Store) Complete(ctx context.Context, id string, out Outcome) error {
	urls := out.URLs
	if urls == nil {
		urls = []string{}
	}
	payload, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}
	return s.update(ctx, id,
		`UPDATE sessions SET status = ?, frame_count = ?, requested_frames = ?, shortfall = ?, remote = ?, urls_json = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		StatusCompleted, out.FrameCount, out.RequestedFrames, out.RequestedFrames-len(out.URLs), boolToInt(out.Remote), string(payload), s.timestamp(), id,
	)
}

// Fail marks a session failed with a human-readable cause.
func (s *Store) Fail(ctx context.Context, id, cause string) error {
	return s.update(ctx, id,
		`UPDATE sessions SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, cause, s.timestamp(), id,
	)
}

func (s *Store) update(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update", "session "+id, nil)
	}
	return nil
}

// Get fetches one session. Unknown ids return services.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get", "session "+id, nil)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions"
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Counts returns the number of sessions per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM sessions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// FailInterrupted marks sessions left in processing by a previous server as
// failed and returns how many were changed.
func (s *Store) FailInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed, InterruptedReason, s.timestamp(), StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted sessions: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished sessions last updated before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE status != ? AND updated_at < ?`,
		StatusProcessing, cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sess       Session
		status     string
		videoName  sql.NullString
		remote     int
		urlsJSON   sql.NullString
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&sess.ID,
		&status,
		&videoName,
		&sess.FrameCount,
		&sess.RequestedFrames,
		&sess.Shortfall,
		&remote,
		&urlsJSON,
		&errMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.Status = Status(status)
	sess.VideoName = videoName.String
	sess.Remote = remote != 0
	sess.Error = errMessage.String
	sess.URLs = []string{}
	if urlsJSON.Valid && urlsJSON.String != "" {
		if err := json.Unmarshal([]byte(urlsJSON.String), &sess.URLs); err != nil {
			return nil, fmt.Errorf("decode urls for %s: %w", sess.ID, err)
		}
	}
	sess.CreatedAt = parseTime(createdRaw)
	sess.UpdatedAt = parseTime(updatedRaw)
	return &sess, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
