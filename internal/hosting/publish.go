package hosting

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"turntable/internal/config"
	"turntable/internal/logging"
)

// Publication is the outcome of publishing a session's frames.
type Publication struct {
	URLs      []string `json:"frame_urls"`
	Requested int      `json:"requested_frames"`
	Failed    []string `json:"failed_frames,omitempty"`
	Remote    bool     `json:"remote"`
}

// Shortfall is the number of requested frames without a URL.
func (p Publication) Shortfall() int {
	return p.Requested - len(p.URLs)
}

// Publisher turns exported frame files into public URLs.
type Publisher interface {
	PublishAll(ctx context.Context, sessionID, dir string, names []string) (Publication, error)
}

// NewPublisher returns the remote uploader when a cloud is configured and
// the local URL builder otherwise.
func NewPublisher(cfg *config.Config, logger *slog.Logger) Publisher {
	if cfg.HostingEnabled() {
		return NewClient(cfg.Hosting, nil, logger)
	}
	return NewLocal(cfg.API.PublicBaseURL)
}

// PublishAll uploads names from dir in order as frame_000, frame_001, ...
// under the session folder. A failed frame is logged and skipped. The only
// error is context cancellation.
func (c *Client) PublishAll(ctx context.Context, sessionID, dir string, names []string) (Publication, error) {
	logger := logging.WithContext(ctx, c.logger)
	pub := Publication{Requested: len(names), Remote: true, URLs: make([]string, 0, len(names))}
	folder := c.Folder(sessionID)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return pub, err
		}
		publicID := fmt.Sprintf("frame_%03d", i)
		secureURL, attempts, err := c.uploadWithRetry(ctx, filepath.Join(dir, name), folder, publicID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return pub, ctxErr
			}
			logging.WarnWithContext(logger, "frame upload failed", "upload_failed",
				logging.String("frame", name),
				logging.Int("slot", i),
				logging.Int("attempts", attempts),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check hosting credentials and network connectivity"),
				logging.String(logging.FieldImpact, "frame missing from published sequence"),
			)
			pub.Failed = append(pub.Failed, name)
			continue
		}
		logger.Debug("frame uploaded",
			logging.Int("slot", i),
			logging.Int("total", len(names)),
			logging.Int("attempts", attempts),
		)
		pub.URLs = append(pub.URLs, secureURL)
	}

	if pub.Shortfall() > 0 {
		logging.WarnWithContext(logger, fmt.Sprintf("only %d/%d frames uploaded successfully", len(pub.URLs), pub.Requested), "upload_shortfall",
			logging.Int("uploaded", len(pub.URLs)),
			logging.Int("requested", pub.Requested),
			logging.Int("shortfall", pub.Shortfall()),
			logging.String(logging.FieldImpact, "viewer receives fewer frames than requested"),
		)
	} else {
		logger.Info("frames uploaded", logging.Int("count", len(pub.URLs)), logging.String("folder", folder))
	}
	return pub, nil
}

// Local serves frames from the API's own /frames endpoint.
type Local struct {
	baseURL string
}

// NewLocal returns a publisher that links to baseURL/frames/<session>/<name>.
func NewLocal(baseURL string) *Local {
	return &Local{baseURL: strings.TrimRight(baseURL, "/")}
}

// FrameURL returns the local URL of one exported frame.
func (l *Local) FrameURL(sessionID, name string) string {
	return l.baseURL + "/frames/" + url.PathEscape(sessionID) + "/" + url.PathEscape(name)
}

// PublishAll implements Publisher without any network traffic.
func (l *Local) PublishAll(ctx context.Context, sessionID, dir string, names []string) (Publication, error) {
	if err := ctx.Err(); err != nil {
		return Publication{}, err
	}
	pub := Publication{Requested: len(names), URLs: make([]string, 0, len(names))}
	for _, name := range names {
		pub.URLs = append(pub.URLs, l.FrameURL(sessionID, name))
	}
	return pub, nil
}
