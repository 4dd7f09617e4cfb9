// Package config loads, normalizes, and validates turntable configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FFMPEG_PATH and the CLOUDINARY_* credentials. The Config type centralizes
// every knob the API server, the CLI, and the processing pipeline need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
