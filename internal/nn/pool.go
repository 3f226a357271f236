package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MaskScore is the score given to padded rows before normalisation.
const MaskScore = -1e9

// MaskedSoftmax normalises scores over the rows where mask is true. Masked
// rows get a weight of exactly 0, and with no valid row every weight is 0.
func MaskedSoftmax(scores []float64, mask []bool) []float64 {
	weights := make([]float64, len(scores))
	masked := make([]float64, len(scores))
	maxScore := math.Inf(-1)
	valid := false
	for i, s := range scores {
		if !mask[i] {
			masked[i] = MaskScore
			continue
		}
		valid = true
		masked[i] = s
		if s > maxScore {
			maxScore = s
		}
	}
	if !valid {
		return weights
	}

	var sum float64
	for i, s := range masked {
		if mask[i] {
			weights[i] = math.Exp(s - maxScore)
			sum += weights[i]
		}
	}
	floats.Scale(1/sum, weights)
	return weights
}

// WeightedSum returns sum_i w[i]*rows[i]; rows with weight 0 are skipped.
func WeightedSum(rows [][]float64, w []float64, dim int) []float64 {
	out := make([]float64, dim)
	for i, r := range rows {
		if w[i] == 0 {
			continue
		}
		floats.AddScaled(out, w[i], r)
	}
	return out
}

// Concat joins vectors end to end.
func Concat(parts ...[]float64) []float64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]float64, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Sub returns a - b.
func Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.SubTo(out, a, b)
	return out
}

// Mul returns the elementwise product of a and b.
func Mul(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.MulTo(out, a, b)
	return out
}
