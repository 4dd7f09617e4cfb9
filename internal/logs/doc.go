// Package logs reads turntable's log files back for the CLI.
//
// Tail returns the last lines of a file along with the byte offset reached, so
// follow mode can poll from that offset with bounded memory. ParseEntry turns
// a JSON log line (the per-session log format) into a readable one-liner.
package logs
