package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// probeResult represents the parsed output from an ffprobe inspection.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
}

type probeFormat struct {
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// VideoInfo summarizes the first video stream of an upload.
type VideoInfo struct {
	Codec           string  `json:"codec"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameRate       float64 `json:"frame_rate"`
	DurationSeconds float64 `json:"duration_seconds"`
	Container       string  `json:"container"`
}

// errNoVideoStream marks uploads ffprobe can read but that hold no video.
var errNoVideoStream = errors.New("no video stream")

// Probe executes ffprobe against path and summarizes its video stream.
func Probe(ctx context.Context, binary, path string) (VideoInfo, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return VideoInfo{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return VideoInfo{}, fmt.Errorf("ffprobe inspect: %w: %s", err, truncate(strings.TrimSpace(string(exitErr.Stderr)), stderrLimit))
		}
		return VideoInfo{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (VideoInfo, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	for _, stream := range result.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		duration := parseFloat(stream.Duration)
		if duration <= 0 || math.IsNaN(duration) {
			duration = parseFloat(result.Format.Duration)
		}
		if math.IsNaN(duration) {
			duration = 0
		}
		return VideoInfo{
			Codec:           stream.CodecName,
			Width:           stream.Width,
			Height:          stream.Height,
			FrameRate:       parseRate(stream.AvgFrameRate),
			DurationSeconds: duration,
			Container:       result.Format.FormatName,
		}, nil
	}
	return VideoInfo{}, errNoVideoStream
}

// parseRate converts ffprobe's "num/den" rational into frames per second.
func parseRate(value string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		v := parseFloat(num)
		if math.IsNaN(v) {
			return 0
		}
		return v
	}
	n, d := parseFloat(num), parseFloat(den)
	if math.IsNaN(n) || math.IsNaN(d) || d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
