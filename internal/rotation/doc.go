// Package rotation turns a stabilized frame sequence into a normalized
// progress curve describing how far the object has turned at every frame.
//
// Progress accumulates the absolute horizontal displacement between
// consecutive frames. The absolute value assumes the object turns in one
// consistent direction: a reversal is counted as forward travel, and camera
// shake larger than the jitter filter absorbs is counted as rotation. Input
// videos should show a single steady turn.
package rotation
