// Package extract decodes an uploaded video into a numbered frame sequence
// with ffmpeg.
//
// Frames are written at a fixed rate as frame_0001.jpg, frame_0002.jpg, ...
// so lexical and temporal order agree. When ffprobe is available the upload
// is inspected first and rejected early if it carries no video stream.
//
// Key types:
//   - FFmpeg: the decoder, built from the [ffmpeg] config section
//   - VideoInfo: the probe summary logged with each session
package extract
