package analysis

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var csvRows = []string{
	"type,sourceName,value,unit,startDate,endDate,creationDate",
	"HeartRate,Watch,62,count/min,2023-08-28 08:00:00 +0200,2023-08-28 08:00:00 +0200,2023-08-28 08:01:00 +0200",
	"HeartRate,Watch,71,count/min,2023-08-28 12:00:00 +0200,2023-08-28 12:00:00 +0200,2023-08-28 12:01:00 +0200",
	"HeartRate,Watch,68,count/min,2023-08-29 08:00:00 +0200,2023-08-29 08:00:00 +0200,2023-08-29 08:01:00 +0200",
	"BodyMass,Scale,176.4,lb,2023-08-28 07:00:00 +0200,2023-08-28 07:00:00 +0200,2023-08-28 07:01:00 +0200",
	"BodyMass,Scale,175.3,lb,2023-08-29 07:00:00 +0200,2023-08-29 07:00:00 +0200,2023-08-29 07:01:00 +0200",
	"BloodPressureSystolic,Cuff,128,mmHg,2023-08-28 09:00:00 +0200,2023-08-28 09:00:00 +0200,2023-08-28 09:01:00 +0200",
	"BloodPressureDiastolic,Cuff,84,mmHg,2023-08-28 09:00:00 +0200,2023-08-28 09:00:00 +0200,2023-08-28 09:01:00 +0200",
	"SleepAnalysis,Watch,HKCategoryValueSleepAnalysisAsleep,,2023-08-27 23:00:00 +0200,2023-08-28 06:30:00 +0200,2023-08-28 06:31:00 +0200",
}

func writeFixtureCSV(t *testing.T, rows []string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "apple_health_export_2023-09-01.csv")
	if err := os.WriteFile(p, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func TestAnalyzeCSVSchema(t *testing.T) {
	p := writeFixtureCSV(t, csvRows)
	rep, err := AnalyzeCSV(p, DefaultOptions())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.Rows != 8 {
		t.Fatalf("rows = %d", rep.Rows)
	}
	byName := map[string]ColumnSummary{}
	for _, c := range rep.Cols {
		byName[c.Name] = c
	}
	if byName["type"].Kind != "categorical" {
		t.Fatalf("type kind = %s", byName["type"].Kind)
	}
	if byName["startDate"].Kind != "datetime" {
		t.Fatalf("startDate kind = %s", byName["startDate"].Kind)
	}
	if byName["value"].Kind != "numeric" {
		t.Fatalf("value kind = %s", byName["value"].Kind)
	}
	if byName["value"].NonNull != 8 {
		t.Fatalf("value non-null = %d", byName["value"].NonNull)
	}
}

func TestAnalyzeCSVNormalizesRowUnits(t *testing.T) {
	rows := []string{
		"type,value,unit,startDate",
		"BodyMass,220.462,lb,2023-08-28 07:00:00 +0200",
	}
	p := writeFixtureCSV(t, rows)
	rep, err := AnalyzeCSV(p, DefaultOptions())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var val ColumnSummary
	for _, c := range rep.Cols {
		if c.Name == "value" {
			val = c
		}
	}
	if val.Unit != "kg" {
		t.Fatalf("unit = %q, want kg", val.Unit)
	}
	if math.Abs(val.Mean-100.0) > 0.01 {
		t.Fatalf("mean = %f, want ~100 kg", val.Mean)
	}
}

func TestAnalyzeCSVGroupBy(t *testing.T) {
	p := writeFixtureCSV(t, csvRows)
	opt := DefaultOptions()
	opt.GroupBy = []string{"type"}
	rep, err := AnalyzeCSV(p, opt)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(rep.Groups) == 0 {
		t.Fatalf("no groups computed")
	}
	var hr *GroupResult
	for i := range rep.Groups {
		if rep.Groups[i].Key == "type=HeartRate" {
			hr = &rep.Groups[i]
		}
	}
	if hr == nil {
		t.Fatalf("HeartRate group missing: %+v", rep.Groups)
	}
	if hr.Size != 3 {
		t.Fatalf("HeartRate group size = %d", hr.Size)
	}
	m := hr.Metrics["value"]
	if math.Abs(m.Mean-67.0) > 0.01 || m.Min != 62 || m.Max != 71 {
		t.Fatalf("HeartRate metrics = %+v", m)
	}
}

func TestAnalyzeCSVMaxRows(t *testing.T) {
	p := writeFixtureCSV(t, csvRows)
	opt := DefaultOptions()
	opt.MaxRows = 3
	rep, err := AnalyzeCSV(p, opt)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.Processed != 3 || rep.Rows != 8 {
		t.Fatalf("processed %d of %d", rep.Processed, rep.Rows)
	}
	if len(rep.Warnings) == 0 {
		t.Fatalf("expected MaxRows warning")
	}
}

func TestAnalyzeCSVMarkdown(t *testing.T) {
	p := writeFixtureCSV(t, csvRows)
	rep, err := AnalyzeCSV(p, DefaultOptions())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "[HEAD AND SAMPLE ROWS]", "Rows: 8"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if q := quantile(sorted, 0.5); q != 2.5 {
		t.Fatalf("median = %f", q)
	}
	if q := quantile(sorted, 0); q != 1 {
		t.Fatalf("q0 = %f", q)
	}
	if q := quantile(sorted, 1); q != 4 {
		t.Fatalf("q1 = %f", q)
	}
}

func TestMedianMAD(t *testing.T) {
	med, mad := medianMAD([]float64{1, 2, 3, 4, 100})
	if med != 3 {
		t.Fatalf("median = %f", med)
	}
	if mad != 1 {
		t.Fatalf("mad = %f", mad)
	}
}

func TestParseNumericCommaFallback(t *testing.T) {
	if v, ok := parseNumeric("61,5"); !ok || v != 61.5 {
		t.Fatalf("comma decimal: %f %v", v, ok)
	}
	if _, ok := parseNumeric("HKCategoryValueSleepAnalysisAsleep"); ok {
		t.Fatalf("category value must not parse as numeric")
	}
}
