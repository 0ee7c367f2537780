package risk

import "math"

// scoreEpsilon absorbs float error before truncating, so 0.3*80 stays 24
const scoreEpsilon = 1e-9

// truncScore truncates a score toward zero and clamps it to [0,100]
func truncScore(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	s := int(v + scoreEpsilon)
	if s > 100 {
		return 100
	}
	return s
}

// truncSeverity truncates a severity and clamps it to [1,10]
func truncSeverity(v float64) int {
	if math.IsNaN(v) {
		return 1
	}
	s := int(v + scoreEpsilon)
	if s < 1 {
		return 1
	}
	if s > 10 {
		return 10
	}
	return s
}

// ceilingScore scores a metric where lower is better. ratio is metric/threshold; at or
// below the excellent band it scores 100, up to 1.0 it decays to 70, beyond it decays
// from 70 toward 0.
func ceilingScore(ratio float64, excellent bool) int {
	switch {
	case excellent:
		return 100
	case ratio <= 1:
		return truncScore(100 - ratio*30)
	default:
		return truncScore(math.Max(0, 70-ratio*30))
	}
}

// floorScore scores a metric where higher is better, relative to a minimum
func floorScore(value, minimum float64) int {
	if minimum <= 0 {
		return 100
	}
	switch {
	case value >= minimum*2:
		return 100
	case value >= minimum:
		return truncScore(70 + (value/minimum-1)*30)
	default:
		return truncScore(math.Max(0, 70*(value/minimum)))
	}
}

// sumToConfidence turns 1-10 severities into a 0-100 confidence
func sumToConfidence(levels []int) int {
	total := 0
	for _, l := range levels {
		total += l * 10
	}
	if total > 100 {
		return 100
	}
	return total
}

func pct(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
