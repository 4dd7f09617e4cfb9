package config

const (
	defaultConfigPath            = "~/.config/turntable/config.toml"
	defaultStagingDir            = "~/.local/share/turntable/staging"
	defaultLogDir                = "~/.local/share/turntable/logs"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFrameRate             = 30
	defaultQScale                = 2
	defaultFrameExtension        = "jpg"
	defaultTargetFrames          = 90
	defaultSessionRetentionHours = 24
	defaultMotionBackend         = "native"
	defaultBorder                = "constant"
	defaultJPEGQuality           = 95
	defaultHostingEndpoint       = "https://api.cloudinary.com"
	defaultHostingFolderPrefix   = "360_frames"
	defaultHostingQuality        = "auto:good"
	defaultHostingFetchFormat    = "auto"
	defaultHostingRetryAttempts  = 1
	defaultHostingRetryBackoffMS = 500
	defaultHostingTimeoutSeconds = 60
	defaultAPIBind               = "127.0.0.1:8000"
	defaultMaxConcurrentSessions = 2
	defaultMaxUploadMB           = 512
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		FFmpeg: FFmpeg{
			Binary:         defaultFFmpegBinary,
			FrameRate:      defaultFrameRate,
			QScale:         defaultQScale,
			FrameExtension: defaultFrameExtension,
		},
		Pipeline: Pipeline{
			TargetFrames:          defaultTargetFrames,
			SessionRetentionHours: defaultSessionRetentionHours,
			KeepIntermediates:     true,
		},
		Motion: Motion{
			Backend:       defaultMotionBackend,
			MaxFeatures:   100,
			QualityLevel:  0.3,
			MinDistance:   7,
			BlockSize:     7,
			WindowSize:    15,
			MaxLevel:      2,
			MaxIterations: 10,
			Epsilon:       0.03,
		},
		Stabilize: Stabilize{
			Border:      defaultBorder,
			JPEGQuality: defaultJPEGQuality,
		},
		Hosting: Hosting{
			Endpoint:       defaultHostingEndpoint,
			FolderPrefix:   defaultHostingFolderPrefix,
			Quality:        defaultHostingQuality,
			FetchFormat:    defaultHostingFetchFormat,
			RetryAttempts:  defaultHostingRetryAttempts,
			RetryBackoffMS: defaultHostingRetryBackoffMS,
			TimeoutSeconds: defaultHostingTimeoutSeconds,
		},
		API: API{
			Bind:                  defaultAPIBind,
			MaxConcurrentSessions: defaultMaxConcurrentSessions,
			MaxUploadMB:           defaultMaxUploadMB,
			AllowedOrigins:        []string{"*"},
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
