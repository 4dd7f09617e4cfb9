package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"turntable/internal/logging"
)

// CleanStaleResult contains the outcome of a cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// entry is one session's artifact inside a stage directory.
type entry struct {
	sessionID string
	stage     string
	path      string
	info      os.FileInfo
}

func sessionIDFromName(stage, name string) string {
	if stage == StageUploads {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func scanStages(root string, result *CleanStaleResult) []entry {
	var entries []entry
	for _, stage := range Stages {
		stageDir := filepath.Join(root, stage)
		items, err := os.ReadDir(stageDir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: stageDir, Error: err})
			}
			continue
		}
		for _, item := range items {
			if strings.HasPrefix(item.Name(), ".") {
				continue
			}
			path := filepath.Join(stageDir, item.Name())
			info, err := item.Info()
			if err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				continue
			}
			entries = append(entries, entry{
				sessionID: sessionIDFromName(stage, item.Name()),
				stage:     stage,
				path:      path,
				info:      info,
			})
		}
	}
	return entries
}

func remove(ctx context.Context, e entry, reason string, result *CleanStaleResult, logger *slog.Logger) {
	if err := os.RemoveAll(e.path); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: e.path, Error: err})
		logging.WarnWithContext(logging.WithContext(ctx, logger), "failed to remove staging entry", "staging_cleanup_failed",
			logging.String("path", e.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return
	}
	result.Removed = append(result.Removed, e.path)
	if logger != nil {
		logger.Info("removed "+reason+" staging entry",
			logging.String("path", e.path),
			logging.String(logging.FieldSessionID, e.sessionID),
			logging.Duration("age", time.Since(e.info.ModTime())),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
}

// CleanStale removes session entries in every stage whose modification time
// is older than maxAge. Sessions listed in active are left alone.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, active map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, e := range scanStages(root, &result) {
		if ctx.Err() != nil {
			break
		}
		if _, ok := active[e.sessionID]; ok {
			continue
		}
		if e.info.ModTime().Before(cutoff) {
			remove(ctx, e, "stale", &result, logger)
		}
	}
	return result
}

// CleanOrphaned removes upload, extracted and stabilized entries of sessions
// not listed in keep. Exported output is never touched.
func CleanOrphaned(ctx context.Context, root string, keep map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	for _, e := range scanStages(root, &result) {
		if ctx.Err() != nil {
			break
		}
		if e.stage == StageOutput {
			continue
		}
		if _, ok := keep[strings.ToLower(e.sessionID)]; ok {
			continue
		}
		remove(ctx, e, "orphaned", &result, logger)
	}
	return result
}

// SessionInfo summarizes one session's footprint across stages.
type SessionInfo struct {
	ID      string
	Stages  []string
	ModTime time.Time
	Size    int64
}

// ListSessions returns every session present under root, newest first.
func ListSessions(root string) ([]SessionInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var scan CleanStaleResult
	byID := make(map[string]*SessionInfo)
	for _, e := range scanStages(root, &scan) {
		info, ok := byID[e.sessionID]
		if !ok {
			info = &SessionInfo{ID: e.sessionID}
			byID[e.sessionID] = info
		}
		info.Stages = append(info.Stages, e.stage)
		if e.info.ModTime().After(info.ModTime) {
			info.ModTime = e.info.ModTime()
		}
		size, _ := dirSize(e.path)
		info.Size += size
	}
	if len(scan.Errors) > 0 {
		return nil, scan.Errors[0].Error
	}

	sessions := make([]SessionInfo, 0, len(byID))
	for _, info := range byID {
		sessions = append(sessions, *info)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].ModTime.Equal(sessions[j].ModTime) {
			return sessions[i].ModTime.After(sessions[j].ModTime)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// dirSize calculates the total size of a file or directory tree.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
