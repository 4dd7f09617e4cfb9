package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// FFmpeg configures the frame decoder.
type FFmpeg struct {
	Binary         string `toml:"binary"`
	FrameRate      int    `toml:"frame_rate"`
	QScale         int    `toml:"qscale"`
	FrameExtension string `toml:"frame_extension"`
}

// Pipeline contains session-level processing knobs.
type Pipeline struct {
	TargetFrames          int  `toml:"target_frames"`
	SessionRetentionHours int  `toml:"session_retention_hours"`
	KeepIntermediates     bool `toml:"keep_intermediates"`
}

// Motion tunes the sparse feature tracker shared by stabilization and rotation tracking.
type Motion struct {
	Backend       string  `toml:"backend"`
	MaxFeatures   int     `toml:"max_features"`
	QualityLevel  float64 `toml:"quality_level"`
	MinDistance   float64 `toml:"min_distance"`
	BlockSize     int     `toml:"block_size"`
	WindowSize    int     `toml:"window_size"`
	MaxLevel      int     `toml:"max_level"`
	MaxIterations int     `toml:"max_iterations"`
	Epsilon       float64 `toml:"epsilon"`
}

// Stabilize configures the translation warp.
type Stabilize struct {
	// Border selects how pixels exposed by the translation are filled:
	// "constant" (black) or "replicate" (nearest edge pixel).
	Border      string `toml:"border"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

// Hosting configures the Cloudinary-compatible image host.
type Hosting struct {
	Endpoint       string `toml:"endpoint"`
	CloudName      string `toml:"cloud_name"`
	UploadPreset   string `toml:"upload_preset"`
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	FolderPrefix   string `toml:"folder_prefix"`
	Quality        string `toml:"quality"`
	FetchFormat    string `toml:"fetch_format"`
	RetryAttempts  int    `toml:"retry_attempts"`
	RetryBackoffMS int    `toml:"retry_backoff_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// API configures the HTTP transport.
type API struct {
	Bind                  string   `toml:"bind"`
	Token                 string   `toml:"token"`
	PublicBaseURL         string   `toml:"public_base_url"`
	MaxConcurrentSessions int      `toml:"max_concurrent_sessions"`
	MaxUploadMB           int      `toml:"max_upload_mb"`
	AllowedOrigins        []string `toml:"allowed_origins"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for turntable.
//
// Configuration sections by subsystem:
//   - Paths: staging root (per-session working areas) and log directory
//   - FFmpeg: decoder binary and extraction rate
//   - Pipeline: target frame count and session retention
//   - Motion: feature tracker parameters
//   - Stabilize: warp border policy and output quality
//   - Hosting: remote image host endpoint and credentials
//   - API: HTTP bind address, auth, and session limits
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Motion        Motion        `toml:"motion"`
	Stabilize     Stabilize     `toml:"stabilize"`
	Hosting       Hosting       `toml:"hosting"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// EnsureDirectories creates the staging and log roots.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HostingEnabled reports whether frames are published to the remote host.
func (c *Config) HostingEnabled() bool {
	return strings.TrimSpace(c.Hosting.CloudName) != ""
}

// SessionLogDir is where per-session JSON logs are written.
func (c *Config) SessionLogDir() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "sessions")
}

// StoreDBPath is the SQLite session history database.
func (c *Config) StoreDBPath() string {
	return filepath.Join(c.Paths.LogDir, "sessions.db")
}
