package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BPOptions controls the blood pressure report.
type BPOptions struct {
	Delimiter rune
	Years     []int // empty means all years
	Weekly    bool  // include per-week box summaries
	Lang      string
}

// BPReport holds the statistics behind the exploratory blood pressure plots:
// overall averages, linear trends, the heart rate overlay, and weekly box
// summaries.
type BPReport struct {
	Name       string
	Pairs      int
	From, To   time.Time
	AvgSys     float64
	AvgDia     float64
	SysTrend   Trend
	DiaTrend   Trend
	HasTrend   bool
	HRCount    int
	HRMean     float64
	HRMin      float64
	HRMax      float64
	HRTrend    Trend
	HasHRTrend bool
	WeeklySys  []WeekBox
	WeeklyDia  []WeekBox
}

// BuildBPReport loads the converted CSV and computes the blood pressure
// report. Systolic readings lead the pairing; heart rate is clipped to the
// paired window.
func BuildBPReport(path string, opt BPOptions) (*BPReport, error) {
	series, err := LoadBPSeries(path, opt.Delimiter)
	if err != nil {
		return nil, err
	}
	pairs := PairNearest(series.Systolic, series.Diastolic)
	pairs = FilterYears(pairs, opt.Years)
	if len(pairs) == 0 {
		return nil, errors.New("no paired blood pressure readings found")
	}

	rep := &BPReport{Name: path, Pairs: len(pairs)}
	rep.From = pairs[0].Time
	rep.To = pairs[len(pairs)-1].Time

	sysVals := make([]float64, len(pairs))
	diaVals := make([]float64, len(pairs))
	sysReadings := make([]Reading, len(pairs))
	diaReadings := make([]Reading, len(pairs))
	for i, p := range pairs {
		sysVals[i] = p.Systolic
		diaVals[i] = p.Diastolic
		sysReadings[i] = Reading{Time: p.Time, Value: p.Systolic}
		diaReadings[i] = Reading{Time: p.Time, Value: p.Diastolic}
	}
	rep.AvgSys = Mean(sysVals)
	rep.AvgDia = Mean(diaVals)

	st, okS := FitOverDays(sysReadings)
	dt, okD := FitOverDays(diaReadings)
	if okS && okD {
		rep.SysTrend = st
		rep.DiaTrend = dt
		rep.HasTrend = true
	}

	hr := ClipWindow(series.HeartRate, rep.From, rep.To)
	if len(hr) > 0 {
		rep.HRCount = len(hr)
		rep.HRMin = hr[0].Value
		rep.HRMax = hr[0].Value
		sum := 0.0
		for _, r := range hr {
			sum += r.Value
			if r.Value < rep.HRMin {
				rep.HRMin = r.Value
			}
			if r.Value > rep.HRMax {
				rep.HRMax = r.Value
			}
		}
		rep.HRMean = sum / float64(len(hr))
		if t, ok := FitOverDays(hr); ok {
			rep.HRTrend = t
			rep.HasHRTrend = true
		}
	}

	if opt.Weekly {
		rep.WeeklySys = WeeklyBoxes(sysReadings)
		rep.WeeklyDia = WeeklyBoxes(diaReadings)
	}
	return rep, nil
}

// Report labels, mirroring the English and German variants of the
// exploratory plots.
var bpLabels = map[string]map[string]string{
	"en": {
		"title":     "BLOOD PRESSURE REPORT",
		"systolic":  "Systolic",
		"diastolic": "Diastolic",
		"heartRate": "Heart Rate",
		"bpUnit":    "mmHg",
		"hrUnit":    "count/min",
		"window":    "Window",
		"pairs":     "paired readings",
		"averages":  "AVERAGES",
		"trend":     "TREND",
		"perDay":    "per day",
		"overDays":  "over %.0f days",
		"weeklySys": "WEEKLY BOXPLOT: SYSTOLIC",
		"weeklyDia": "WEEKLY BOXPLOT: DIASTOLIC",
		"readings":  "readings",
		"outliers":  "outliers",
	},
	"de": {
		"title":     "BLUTDRUCK-BERICHT",
		"systolic":  "Systolisch",
		"diastolic": "Diastolisch",
		"heartRate": "Herzfrequenz",
		"bpUnit":    "mmHg",
		"hrUnit":    "Schläge/Min",
		"window":    "Zeitraum",
		"pairs":     "gepaarte Messungen",
		"averages":  "MITTELWERTE",
		"trend":     "TREND",
		"perDay":    "pro Tag",
		"overDays":  "über %.0f Tage",
		"weeklySys": "WOCHEN-BOXPLOT: SYSTOLISCH",
		"weeklyDia": "WOCHEN-BOXPLOT: DIASTOLISCH",
		"readings":  "Messungen",
		"outliers":  "Ausreißer",
	},
}

// Markdown renders the report with labels for lang ("en" or "de"; unknown
// languages fall back to English).
func (r *BPReport) Markdown(lang string) string {
	l, ok := bpLabels[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		l = bpLabels["en"]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", l["title"])
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	fmt.Fprintf(&b, "%s: %s .. %s (%d %s)\n\n",
		l["window"], r.From.Format("2006-01-02"), r.To.Format("2006-01-02"), r.Pairs, l["pairs"])

	fmt.Fprintf(&b, "[%s]\n", l["averages"])
	fmt.Fprintf(&b, "- %s: %.1f %s\n", l["systolic"], r.AvgSys, l["bpUnit"])
	fmt.Fprintf(&b, "- %s: %.1f %s\n", l["diastolic"], r.AvgDia, l["bpUnit"])

	if r.HasTrend {
		span := days(r.From, r.To)
		fmt.Fprintf(&b, "\n[%s]\n", l["trend"])
		fmt.Fprintf(&b, "- %s: %+.3f %s %s (%+.1f %s "+l["overDays"]+")\n",
			l["systolic"], r.SysTrend.Slope, l["bpUnit"], l["perDay"], r.SysTrend.Slope*span, l["bpUnit"], span)
		fmt.Fprintf(&b, "- %s: %+.3f %s %s (%+.1f %s "+l["overDays"]+")\n",
			l["diastolic"], r.DiaTrend.Slope, l["bpUnit"], l["perDay"], r.DiaTrend.Slope*span, l["bpUnit"], span)
	}

	if r.HRCount > 0 {
		fmt.Fprintf(&b, "\n[%s]\n", strings.ToUpper(l["heartRate"]))
		fmt.Fprintf(&b, "- %d %s, mean %.1f %s (min %.0f, max %.0f)\n",
			r.HRCount, l["readings"], r.HRMean, l["hrUnit"], r.HRMin, r.HRMax)
		if r.HasHRTrend {
			fmt.Fprintf(&b, "- %s: %+.3f %s %s\n", l["trend"], r.HRTrend.Slope, l["hrUnit"], l["perDay"])
		}
	}

	writeWeekly := func(title string, boxes []WeekBox) {
		if len(boxes) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n[%s]\n", title)
		for _, wb := range boxes {
			box := wb.Box
			fmt.Fprintf(&b, "- %s (n=%d): min %.0f, q1 %.1f, median %.1f, q3 %.1f, max %.0f",
				wb.Key(), box.N, box.YMin, box.Lower, box.Middle, box.Higher, box.YMax)
			if box.Outliers > 0 {
				fmt.Fprintf(&b, ", %d %s", box.Outliers, l["outliers"])
			}
			b.WriteString("\n")
		}
	}
	writeWeekly(l["weeklySys"], r.WeeklySys)
	writeWeekly(l["weeklyDia"], r.WeeklyDia)
	return b.String()
}
