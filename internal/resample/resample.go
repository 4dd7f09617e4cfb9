// Package resample maps a uniform grid of target angular positions onto a
// progress curve, choosing which source frame fills each output slot.
//
// Slots may repeat a source frame where the object turned slowly and skip
// frames where it turned quickly; the output is evenly paced in angle, not
// in time.
package resample

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEmptyCurve is returned when there is no source frame to select.
var ErrEmptyCurve = errors.New("empty progress curve")

// IndexMap lists the source frame index for each output slot.
type IndexMap []int

// Desired returns t evenly spaced positions from 0 to 1 inclusive.
// A single slot is positioned at 0.
func Desired(t int) []float64 {
	out := make([]float64, t)
	if t <= 1 {
		return out
	}
	for k := range out {
		out[k] = float64(k) / float64(t-1)
	}
	return out
}

// Resample selects exactly t indices into curve. Each slot takes the leftmost
// frame whose progress reaches the slot's position, or the last frame when
// no frame does. curve must be non-decreasing.
func Resample(curve []float64, t int) (IndexMap, error) {
	if len(curve) == 0 {
		return nil, ErrEmptyCurve
	}
	if t < 1 {
		return nil, fmt.Errorf("target frame count must be at least 1, got %d", t)
	}
	last := len(curve) - 1
	out := make(IndexMap, t)
	for k, want := range Desired(t) {
		idx := sort.SearchFloat64s(curve, want)
		out[k] = min(max(idx, 0), last)
	}
	return out, nil
}

// Distinct returns how many different source frames the map uses.
func (m IndexMap) Distinct() int {
	seen := make(map[int]struct{}, len(m))
	for _, idx := range m {
		seen[idx] = struct{}{}
	}
	return len(seen)
}
