package stabilize

import "turntable/internal/motion"

const (
	// smoothingDecay weights the previous smoothed value.
	smoothingDecay = 0.9
	// smoothingGain weights the new raw value.
	smoothingGain = 0.1
)

// Smooth applies smoothed[0] = 0.1*raw[0] and
// smoothed[i] = 0.9*smoothed[i-1] + 0.1*raw[i] independently per axis.
// The recurrence is a strict left-to-right fold.
func Smooth(raw []motion.Displacement) []motion.Displacement {
	out := make([]motion.Displacement, len(raw))
	var prev motion.Displacement
	for i, d := range raw {
		if i == 0 {
			out[i] = motion.Displacement{DX: smoothingGain * d.DX, DY: smoothingGain * d.DY}
		} else {
			out[i] = motion.Displacement{
				DX: smoothingDecay*prev.DX + smoothingGain*d.DX,
				DY: smoothingDecay*prev.DY + smoothingGain*d.DY,
			}
		}
		prev = out[i]
	}
	return out
}

// Cumulative returns the running offset of every frame: cum[0] is zero and
// cum[i] = cum[i-1] + smoothed[i-1]. The result has len(smoothed)+1 entries.
func Cumulative(smoothed []motion.Displacement) []motion.Displacement {
	cum := make([]motion.Displacement, len(smoothed)+1)
	for i := 1; i < len(cum); i++ {
		cum[i] = motion.Displacement{
			DX: cum[i-1].DX + smoothed[i-1].DX,
			DY: cum[i-1].DY + smoothed[i-1].DY,
		}
	}
	return cum
}
