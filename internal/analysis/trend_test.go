package analysis

import (
	"math"
	"testing"
	"time"
)

func TestFitLineExact(t *testing.T) {
	// y = 2x + 1
	xs := []float64{0, 1, 2, 3}
	ys := []float64{1, 3, 5, 7}
	tr, ok := FitLine(xs, ys)
	if !ok {
		t.Fatalf("fit failed")
	}
	if math.Abs(tr.Slope-2) > 1e-12 || math.Abs(tr.Intercept-1) > 1e-12 {
		t.Fatalf("fit = %+v", tr)
	}
	if tr.N != 4 {
		t.Fatalf("n = %d", tr.N)
	}
}

func TestFitLineDegenerate(t *testing.T) {
	if _, ok := FitLine([]float64{1}, []float64{2}); ok {
		t.Fatalf("single point must not fit")
	}
	if _, ok := FitLine([]float64{3, 3, 3}, []float64{1, 2, 3}); ok {
		t.Fatalf("zero x spread must not fit")
	}
}

func TestFitIndex(t *testing.T) {
	tr, ok := FitIndex([]float64{10, 12, 14, 16})
	if !ok {
		t.Fatalf("fit failed")
	}
	if math.Abs(tr.Slope-2) > 1e-12 || math.Abs(tr.Intercept-10) > 1e-12 {
		t.Fatalf("fit = %+v", tr)
	}
}

func TestFitOverDays(t *testing.T) {
	t0 := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	rs := []Reading{
		{Time: t0, Value: 120},
		{Time: t0.AddDate(0, 0, 1), Value: 121},
		{Time: t0.AddDate(0, 0, 2), Value: 122},
	}
	tr, ok := FitOverDays(rs)
	if !ok {
		t.Fatalf("fit failed")
	}
	if math.Abs(tr.Slope-1) > 1e-9 {
		t.Fatalf("slope per day = %f, want 1", tr.Slope)
	}
}
