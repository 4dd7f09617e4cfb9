package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Stage directory names under the staging root.
const (
	StageUploads    = "uploads"
	StageExtracted  = "extracted"
	StageStabilized = "stabilized"
	StageOutput     = "output"
)

// Stages lists stage directories in pipeline order.
var Stages = []string{StageUploads, StageExtracted, StageStabilized, StageOutput}

// NewSessionID returns a fresh random session token.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id is a canonical session token. Callers
// use it before joining an id into a filesystem path.
func ValidSessionID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

// Workspace holds the per-stage paths of one session.
type Workspace struct {
	Root       string
	SessionID  string
	Video      string
	Extracted  string
	Stabilized string
	Output     string
}

// NewWorkspace lays out paths for sessionID. ext is the uploaded video's
// extension including the dot; it defaults to .mp4.
func NewWorkspace(root, sessionID, ext string) Workspace {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		ext = ".mp4"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return Workspace{
		Root:       root,
		SessionID:  sessionID,
		Video:      filepath.Join(root, StageUploads, sessionID+ext),
		Extracted:  filepath.Join(root, StageExtracted, sessionID),
		Stabilized: filepath.Join(root, StageStabilized, sessionID),
		Output:     filepath.Join(root, StageOutput, sessionID),
	}
}

// OutputDir is the exported frame directory for sessionID.
func OutputDir(root, sessionID string) string {
	return filepath.Join(root, StageOutput, sessionID)
}

// Create makes the stage directories. The video file itself is written by
// the caller.
func (w Workspace) Create() error {
	for _, dir := range []string{filepath.Dir(w.Video), w.Extracted, w.Stabilized, w.Output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// RemoveIntermediates deletes everything except the exported output.
func (w Workspace) RemoveIntermediates() error {
	var firstErr error
	for _, path := range []string{w.Video, w.Extracted, w.Stabilized} {
		if err := os.RemoveAll(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RemoveOutput deletes the exported frames.
func (w Workspace) RemoveOutput() error {
	return os.RemoveAll(w.Output)
}

// Remove deletes every stage entry of the session.
func (w Workspace) Remove() error {
	if err := w.RemoveIntermediates(); err != nil {
		return err
	}
	return w.RemoveOutput()
}
