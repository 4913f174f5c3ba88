package analytics

import "math"

// Percentile uses the nearest-rank convention index = ceil(p/100*n)-1,
// clamped to [0, n-1]. Input must be sorted ascending.
func Percentile(sorted []float64, p float64) float64 {
    n := len(sorted)
    if n == 0 { return 0 }
    idx := int(math.Ceil(p/100.0*float64(n))) - 1
    if idx < 0 { idx = 0 }
    if idx >= n { idx = n - 1 }
    return sorted[idx]
}

// Average of an empty set is 0, never NaN.
func Average(values []float64) float64 {
    if len(values) == 0 { return 0 }
    sum := 0.0
    for _, v := range values { sum += v }
    return sum / float64(len(values))
}

// Ratio returns num/den*100, 0 when the denominator is 0.
func Ratio(num, den float64) float64 {
    if den == 0 { return 0 }
    return num / den * 100
}

func Round1(v float64) float64 { return math.Round(v*10) / 10 }

func Clamp(v, lo, hi float64) float64 {
    if v < lo { return lo }
    if v > hi { return hi }
    return v
}
