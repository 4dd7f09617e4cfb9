// Package preflight runs startup checks for the serve and status commands:
// staging and log directory permissions, free disk space on the staging
// volume, external binaries, and hosting endpoint reachability when uploads
// are enabled.
package preflight
