// Package store keeps a SQLite history of processing sessions.
//
// Each POST to the API creates a row when the session starts and updates it
// once the pipeline finishes or fails, so operators can list recent sessions
// and inspect their published URLs after the staging directories are gone.
// The schema is managed by golang-migrate using the embedded migrations
// directory; add a new numbered up/down pair for every change.
package store
