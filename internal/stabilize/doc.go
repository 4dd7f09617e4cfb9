// Package stabilize removes hand-held jitter from an extracted frame sequence.
//
// Raw per-pair displacements are low-pass filtered with a causal exponential
// filter (Smooth); each frame is then translated by the negative running sum
// of the smoothed displacements so slow intentional motion survives while
// frame-to-frame shake is cancelled. Frame 0 is never moved. Frames that fail
// to decode are skipped, so the output directory may be sparse.
package stabilize
