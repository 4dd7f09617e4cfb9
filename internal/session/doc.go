// Package session runs one uploaded video through the whole pipeline:
// decode, stabilize, track rotation, resample, export and publish.
//
// A Pipeline is shared by all requests. Each call to Prepare allocates a
// fresh session token and staging workspace; Process then runs the stages
// strictly in order on the caller's goroutine. Sessions never share state
// beyond the read-only configuration, the session store and the notifier.
//
// Stage components are built per session so their logs land in both the
// main log and the session's own JSON log under <log_dir>/sessions.
package session
