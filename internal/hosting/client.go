package hosting

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"turntable/internal/config"
	"turntable/internal/logging"
	"turntable/internal/services"
)

// HTTPDoer describes the HTTP client used by the uploader.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client uploads images to a Cloudinary-compatible endpoint.
type Client struct {
	endpoint     string
	cloudName    string
	uploadPreset string
	apiKey       string
	apiSecret    string
	folderPrefix string
	quality      string
	fetchFormat  string
	attempts     int
	backoff      time.Duration
	client       HTTPDoer
	now          func() time.Time
	logger       *slog.Logger
}

// NewClient builds an uploader from the [hosting] config section. A nil
// client uses an http.Client with the configured timeout.
func NewClient(cfg config.Hosting, client HTTPDoer, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	return &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		cloudName:    strings.TrimSpace(cfg.CloudName),
		uploadPreset: strings.TrimSpace(cfg.UploadPreset),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiSecret:    strings.TrimSpace(cfg.APISecret),
		folderPrefix: strings.Trim(cfg.FolderPrefix, "/"),
		quality:      cfg.Quality,
		fetchFormat:  cfg.FetchFormat,
		attempts:     max(cfg.RetryAttempts, 1),
		backoff:      time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
		client:       client,
		now:          time.Now,
		logger:       logging.NewComponentLogger(logger, "hosting"),
	}
}

// UploadURL is the image upload endpoint for the configured cloud.
func (c *Client) UploadURL() string {
	return fmt.Sprintf("%s/v1_1/%s/image/upload", c.endpoint, c.cloudName)
}

// Folder is the remote folder holding a session's frames.
func (c *Client) Folder(sessionID string) string {
	if c.folderPrefix == "" {
		return sessionID
	}
	return c.folderPrefix + "/" + sessionID
}

// Signed reports whether uploads are signed with an API secret.
func (c *Client) Signed() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// Params returns the form fields sent with an upload, excluding the file.
func (c *Client) Params(folder, publicID string) map[string]string {
	params := map[string]string{
		"folder":    folder,
		"public_id": publicID,
	}
	if c.quality != "" {
		params["quality"] = c.quality
	}
	if c.fetchFormat != "" {
		params["fetch_format"] = c.fetchFormat
	}
	if c.Signed() {
		params["timestamp"] = strconv.FormatInt(c.now().Unix(), 10)
		params["signature"] = Sign(params, c.apiSecret)
		params["api_key"] = c.apiKey
	} else {
		params["upload_preset"] = c.uploadPreset
	}
	return params
}

// Sign computes the upload signature: the SHA-1 hex digest of the
// alphabetically sorted key=value pairs joined with '&', followed by the
// secret. file, api_key, cloud_name, resource_type and signature are not signed.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		switch k {
		case "file", "api_key", "cloud_name", "resource_type", "signature":
			continue
		}
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends one image and returns its secure URL. Failures that may
// succeed on retry are tagged services.ErrTransient.
func (c *Client) Upload(ctx context.Context, path, folder, publicID string) (string, error) {
	body, contentType, err := c.encodeForm(path, c.Params(folder, publicID))
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL(), body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "hosting", "upload", publicID, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "hosting", "read response", publicID, err)
	}

	var parsed uploadResponse
	_ = json.Unmarshal(payload, &parsed)
	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(payload))
		if parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		}
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return "", services.Wrap(marker, "hosting", "upload", fmt.Sprintf("%s: HTTP %d: %s", publicID, resp.StatusCode, detail), nil)
	}
	if parsed.SecureURL == "" {
		return "", services.Wrap(services.ErrExternalTool, "hosting", "upload", publicID+": response missing secure_url", nil)
	}
	return parsed.SecureURL, nil
}

// encodeForm builds the multipart body in memory; frames are small JPEGs.
func (c *Client) encodeForm(path string, params map[string]string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := w.WriteField(k, params[k]); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// uploadWithRetry makes up to c.attempts attempts with linear backoff,
// retrying only transient failures.
func (c *Client) uploadWithRetry(ctx context.Context, path, folder, publicID string) (string, int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		url, err := c.Upload(ctx, path, folder, publicID)
		if err == nil {
			return url, attempt, nil
		}
		lastErr = err
		if !errors.Is(err, services.ErrTransient) || attempt == c.attempts {
			return "", attempt, lastErr
		}
		if c.backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt) * c.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", attempt, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return "", c.attempts, lastErr
}
