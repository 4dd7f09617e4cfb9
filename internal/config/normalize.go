package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeMotion()
	c.normalizeHosting()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = ExpandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	if value, ok := os.LookupEnv("FFMPEG_PATH"); ok && strings.TrimSpace(value) != "" {
		if strings.TrimSpace(c.FFmpeg.Binary) == "" || c.FFmpeg.Binary == defaultFFmpegBinary {
			c.FFmpeg.Binary = strings.TrimSpace(value)
		}
	}
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	c.FFmpeg.FrameExtension = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.FFmpeg.FrameExtension)), ".")
	if c.FFmpeg.FrameExtension == "" {
		c.FFmpeg.FrameExtension = defaultFrameExtension
	}
}

func (c *Config) normalizeMotion() {
	c.Motion.Backend = strings.ToLower(strings.TrimSpace(c.Motion.Backend))
	if c.Motion.Backend == "" {
		c.Motion.Backend = defaultMotionBackend
	}
	c.Stabilize.Border = strings.ToLower(strings.TrimSpace(c.Stabilize.Border))
	if c.Stabilize.Border == "" {
		c.Stabilize.Border = defaultBorder
	}
}

func (c *Config) normalizeHosting() {
	envFallback(&c.Hosting.CloudName, "CLOUDINARY_CLOUD_NAME")
	envFallback(&c.Hosting.UploadPreset, "CLOUDINARY_UPLOAD_PRESET")
	envFallback(&c.Hosting.APIKey, "CLOUDINARY_API_KEY")
	envFallback(&c.Hosting.APISecret, "CLOUDINARY_API_SECRET")
	c.Hosting.Endpoint = strings.TrimRight(strings.TrimSpace(c.Hosting.Endpoint), "/")
	if c.Hosting.Endpoint == "" {
		c.Hosting.Endpoint = defaultHostingEndpoint
	}
	c.Hosting.FolderPrefix = strings.Trim(strings.TrimSpace(c.Hosting.FolderPrefix), "/")
	if c.Hosting.FolderPrefix == "" {
		c.Hosting.FolderPrefix = defaultHostingFolderPrefix
	}
	if strings.TrimSpace(c.Hosting.Quality) == "" {
		c.Hosting.Quality = defaultHostingQuality
	}
	if strings.TrimSpace(c.Hosting.FetchFormat) == "" {
		c.Hosting.FetchFormat = defaultHostingFetchFormat
	}
}

func (c *Config) normalizeAPI() {
	envFallback(&c.API.Token, "TURNTABLE_API_TOKEN")
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.API.PublicBaseURL), "/")
	if c.API.PublicBaseURL == "" {
		c.API.PublicBaseURL = "http://" + c.API.Bind
	}
	origins := c.API.AllowedOrigins[:0]
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins
}

func (c *Config) normalizeNotifications() {
	envFallback(&c.Notifications.NtfyTopic, "NTFY_TOPIC")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(target *string, key string) {
	if strings.TrimSpace(*target) != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*target = strings.TrimSpace(value)
	}
}
