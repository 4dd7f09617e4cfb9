// Package staging owns the on-disk layout of processing sessions.
//
// Every session gets one entry per stage under the staging root:
//
//	uploads/<id>.<ext>   the uploaded video
//	extracted/<id>/      decoded frames (frame_0001.jpg, ...)
//	stabilized/<id>/     translation-corrected frames
//	output/<id>/         exported 360_000.jpg ... frames
//
// Sessions never share a directory, which is what lets concurrent requests
// run without locking. Cleanup helpers remove stale entries across all
// stages by age, or intermediates of sessions that no longer need them.
package staging
