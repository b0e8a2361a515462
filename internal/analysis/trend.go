package analysis

import "time"

// Trend is a least-squares line fit y = Slope*x + Intercept.
type Trend struct {
	Slope     float64
	Intercept float64
	N         int
}

// FitLine computes the ordinary least-squares fit of ys over xs. Returns
// false when fewer than two points or a degenerate x spread make the fit
// undefined.
func FitLine(xs, ys []float64) (Trend, bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return Trend{}, false
	}
	var sumX, sumY, sumXX, sumXY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
		sumXX += xs[i] * xs[i]
		sumXY += xs[i] * ys[i]
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return Trend{}, false
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn
	return Trend{Slope: slope, Intercept: intercept, N: n}, true
}

// FitIndex fits vals over their sample index 0..n-1, the way an exploratory
// trend line is usually drawn over a reading sequence.
func FitIndex(vals []float64) (Trend, bool) {
	xs := make([]float64, len(vals))
	for i := range xs {
		xs[i] = float64(i)
	}
	return FitLine(xs, vals)
}

// FitOverDays fits the readings over days elapsed since the first reading,
// giving a slope in value units per day.
func FitOverDays(rs []Reading) (Trend, bool) {
	if len(rs) < 2 {
		return Trend{}, false
	}
	t0 := rs[0].Time
	xs := make([]float64, len(rs))
	ys := make([]float64, len(rs))
	for i, r := range rs {
		xs[i] = r.Time.Sub(t0).Hours() / 24
		ys[i] = r.Value
	}
	return FitLine(xs, ys)
}

// days returns the span of a window in fractional days.
func days(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}
