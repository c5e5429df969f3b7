package render

import (
	"maps"
	"math"
)

// Snap rounds v to the nearest integer, with halves rounding up
// (-2.5 snaps to -2). NaN and infinities are returned unchanged.
func Snap(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r := math.Round(v)
	if v-r == 0.5 {
		r++
	}
	return r
}

// SnapAll returns a new slice with every element of vs snapped.
func SnapAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = Snap(v)
	}
	return out
}

// Extend copies every key of src into dst, overwriting existing keys, and
// returns dst. A nil dst is allocated. Values are copied shallowly.
func Extend[K comparable, V any](dst, src map[K]V) map[K]V {
	if dst == nil {
		dst = make(map[K]V, len(src))
	}
	maps.Copy(dst, src)
	return dst
}
