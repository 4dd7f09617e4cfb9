// Package motion estimates the 2D translation between consecutive grayscale
// frames with sparse feature tracking.
//
// Corners are selected with the Shi-Tomasi criterion (minimum eigenvalue of
// the gradient structure tensor) and tracked into the next frame with
// pyramidal iterative Lucas-Kanade. The displacement is the coordinate-wise
// mean of the converged tracks. Degenerate inputs are not errors: a pair with
// no corners or no converged tracks yields exactly (0,0), tagged with an
// Outcome so callers can tell a measured zero from a fallback zero.
//
// The native estimator is pure Go. Building with -tags gocv adds an OpenCV
// backend with the same parameters, selected with motion.backend = "opencv".
package motion
