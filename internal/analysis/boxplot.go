package analysis

import (
	"fmt"
	"sort"
)

// Box holds the components of a box-and-whisker summary: quartiles, whisker
// ends at the most extreme values within coef*IQR of the quartiles, and the
// count of points beyond the whiskers.
type Box struct {
	YMin     float64 // lower whisker end
	Lower    float64 // first quartile
	Middle   float64 // median
	Higher   float64 // third quartile
	YMax     float64 // upper whisker end
	Outliers int
	N        int
}

// NewBox summarizes vals with whiskers at coef times the interquartile
// range (1.5 is the conventional coefficient).
func NewBox(vals []float64, coef float64) Box {
	n := len(vals)
	if n == 0 {
		return Box{}
	}
	sorted := make([]float64, n)
	copy(sorted, vals)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	med := quantile(sorted, 0.5)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	loFence := q1 - coef*iqr
	hiFence := q3 + coef*iqr

	b := Box{Lower: q1, Middle: med, Higher: q3, N: n}
	b.YMin = sorted[n-1]
	b.YMax = sorted[0]
	for _, v := range sorted {
		if v < loFence || v > hiFence {
			b.Outliers++
			continue
		}
		if v < b.YMin {
			b.YMin = v
		}
		if v > b.YMax {
			b.YMax = v
		}
	}
	if b.Outliers == n {
		// every point beyond the fences; fall back to data extremes
		b.YMin = sorted[0]
		b.YMax = sorted[n-1]
	}
	return b
}

// WeekBox is a box summary for one ISO year/week bucket.
type WeekBox struct {
	Year int
	Week int
	Box  Box
}

// Key renders the bucket as "2019-W07".
func (w WeekBox) Key() string { return fmt.Sprintf("%d-W%02d", w.Year, w.Week) }

// WeeklyBoxes buckets readings by ISO year and week and summarizes each
// bucket. Weeks with no readings simply have no bucket. Results are sorted
// chronologically.
func WeeklyBoxes(rs []Reading) []WeekBox {
	type key struct{ year, week int }
	buckets := map[key][]float64{}
	for _, r := range rs {
		y, w := r.Time.ISOWeek()
		k := key{y, w}
		buckets[k] = append(buckets[k], r.Value)
	}
	out := make([]WeekBox, 0, len(buckets))
	for k, vals := range buckets {
		out = append(out, WeekBox{Year: k.year, Week: k.week, Box: NewBox(vals, 1.5)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Week < out[j].Week
	})
	return out
}
