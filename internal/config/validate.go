package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateMotion(); err != nil {
		return err
	}
	if err := c.validateStabilize(); err != nil {
		return err
	}
	if err := c.validateHosting(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// OpenCVBlockSize is the corner window gocv's GoodFeaturesToTrack always
// uses; that binding takes no block size argument.
const OpenCVBlockSize = 3

// Warnings lists settings that load but will not take effect as written.
func (c *Config) Warnings() []string {
	var out []string
	if c.Motion.Backend == "opencv" && c.Motion.BlockSize != OpenCVBlockSize {
		out = append(out, fmt.Sprintf(
			"motion.block_size = %d is ignored by the opencv backend, which detects corners with a %dx%d window",
			c.Motion.BlockSize, OpenCVBlockSize, OpenCVBlockSize))
	}
	return out
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.FrameRate <= 0 {
		return errors.New("ffmpeg.frame_rate must be positive")
	}
	if c.FFmpeg.QScale < 1 || c.FFmpeg.QScale > 31 {
		return errors.New("ffmpeg.qscale must be between 1 and 31")
	}
	switch c.FFmpeg.FrameExtension {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("ffmpeg.frame_extension: unsupported extension %q", c.FFmpeg.FrameExtension)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.TargetFrames < 1 {
		return errors.New("pipeline.target_frames must be at least 1")
	}
	if c.Pipeline.SessionRetentionHours < 0 {
		return errors.New("pipeline.session_retention_hours must be non-negative")
	}
	return nil
}

func (c *Config) validateMotion() error {
	switch c.Motion.Backend {
	case "native", "opencv":
	default:
		return fmt.Errorf("motion.backend: unsupported backend %q (expected native or opencv)", c.Motion.Backend)
	}
	m := c.Motion
	if m.MaxFeatures <= 0 {
		return errors.New("motion.max_features must be positive")
	}
	if m.QualityLevel <= 0 || m.QualityLevel > 1 {
		return errors.New("motion.quality_level must be in (0, 1]")
	}
	if m.MinDistance < 0 {
		return errors.New("motion.min_distance must be non-negative")
	}
	if m.BlockSize < 3 || m.BlockSize%2 == 0 {
		return errors.New("motion.block_size must be an odd number >= 3")
	}
	if m.WindowSize < 3 || m.WindowSize%2 == 0 {
		return errors.New("motion.window_size must be an odd number >= 3")
	}
	if m.MaxLevel < 0 {
		return errors.New("motion.max_level must be non-negative")
	}
	if m.MaxIterations <= 0 {
		return errors.New("motion.max_iterations must be positive")
	}
	if m.Epsilon <= 0 {
		return errors.New("motion.epsilon must be positive")
	}
	return nil
}

func (c *Config) validateStabilize() error {
	switch c.Stabilize.Border {
	case "constant", "replicate":
	default:
		return fmt.Errorf("stabilize.border: unsupported policy %q (expected constant or replicate)", c.Stabilize.Border)
	}
	if c.Stabilize.JPEGQuality < 1 || c.Stabilize.JPEGQuality > 100 {
		return errors.New("stabilize.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateHosting() error {
	if c.Hosting.RetryAttempts < 1 {
		return errors.New("hosting.retry_attempts must be at least 1")
	}
	if c.Hosting.RetryBackoffMS < 0 {
		return errors.New("hosting.retry_backoff_ms must be non-negative")
	}
	if c.Hosting.TimeoutSeconds <= 0 {
		return errors.New("hosting.timeout_seconds must be positive")
	}
	if !c.HostingEnabled() {
		return nil
	}
	signed := c.Hosting.APIKey != "" || c.Hosting.APISecret != ""
	if signed && (c.Hosting.APIKey == "" || c.Hosting.APISecret == "") {
		return errors.New("hosting.api_key and hosting.api_secret must be set together")
	}
	if !signed && strings.TrimSpace(c.Hosting.UploadPreset) == "" {
		return errors.New("hosting requires upload_preset or api_key/api_secret when cloud_name is set")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.MaxConcurrentSessions < 0 {
		return errors.New("api.max_concurrent_sessions must be non-negative (0 = unbounded)")
	}
	if c.API.MaxUploadMB <= 0 {
		return errors.New("api.max_upload_mb must be positive")
	}
	if !strings.HasPrefix(c.API.PublicBaseURL, "http://") && !strings.HasPrefix(c.API.PublicBaseURL, "https://") {
		return fmt.Errorf("api.public_base_url must be an http(s) URL, got %q", c.API.PublicBaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be non-negative")
	}
	return nil
}
