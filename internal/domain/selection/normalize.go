package selection

import "math"

// Normalize rescales values to [0,1] with min-max normalisation. A zero
// range maps everything to 0. When the maximum is +Inf the range is
// unbounded: +Inf maps to 1 and every finite value to 0.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return out
	}
	if math.IsInf(hi, 1) {
		for i, v := range values {
			if math.IsInf(v, 1) {
				out[i] = 1
			}
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
