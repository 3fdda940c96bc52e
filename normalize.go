package kbody

import "math"

//normalize rescales the flattened distances with an exponential decay,
//exp(-(d/l)^order), so shorter bonds get larger weights. With order 0 the
//reference lengths are skipped and the decay is plain exp(-d). Infinite
//distances (ghost pairs) come out as exactly 0, since exp(-Inf) is 0.
//A new slice is returned; the input is left alone.
func normalize(dists, lengths []float64, order int) []float64 {
	out := make([]float64, len(dists))
	switch order {
	case 0:
		for i, d := range dists {
			out[i] = math.Exp(-d)
		}
	case 1:
		for i, d := range dists {
			out[i] = math.Exp(-d / lengths[i])
		}
	default:
		fo := float64(order)
		for i, d := range dists {
			out[i] = math.Exp(-math.Pow(d/lengths[i], fo))
		}
	}
	return out
}
