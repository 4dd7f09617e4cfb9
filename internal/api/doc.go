// Package api serves the HTTP surface of turntable.
//
// Routes:
//
//	POST /process360                     run one uploaded video through the pipeline
//	GET  /frames/{session}/{filename}    serve an exported frame from staging
//	GET  /health                         liveness probe
//	GET  /api/sessions                   recent session history
//	GET  /api/sessions/{id}              one stored session
//
// Sessions run synchronously on the request goroutine; a semaphore sized by
// [api] max_concurrent_sessions rejects extra uploads with 503. When
// [api] token is set every route except /health and /frames requires
// "Authorization: Bearer <token>".
//
// DTOs convert internal store records to transport types with snake_case
// JSON and RFC3339 millisecond timestamps.
package api
