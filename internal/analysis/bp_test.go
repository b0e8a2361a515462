package analysis

import (
	"math"
	"testing"
	"time"
)

func at(day, hour int) time.Time {
	return time.Date(2023, 8, day, hour, 0, 0, 0, time.UTC)
}

func TestPairNearest(t *testing.T) {
	sys := []Reading{
		{Time: at(1, 9), Value: 130},
		{Time: at(2, 9), Value: 125},
		{Time: at(3, 9), Value: 128},
	}
	dia := []Reading{
		{Time: at(1, 9), Value: 85},
		{Time: at(2, 10), Value: 82}, // an hour off, still nearest
		{Time: at(3, 9), Value: 84},
	}
	pairs := PairNearest(sys, dia)
	if len(pairs) != 3 {
		t.Fatalf("pairs = %d", len(pairs))
	}
	want := []float64{85, 82, 84}
	for i, p := range pairs {
		if p.Diastolic != want[i] {
			t.Fatalf("pair %d: dia = %f, want %f", i, p.Diastolic, want[i])
		}
	}
	if pairs[0].Time != sys[0].Time {
		t.Fatalf("pair time should follow the systolic reading")
	}
}

func TestPairNearestEmpty(t *testing.T) {
	if got := PairNearest(nil, []Reading{{Time: at(1, 9), Value: 80}}); got != nil {
		t.Fatalf("expected nil for empty systolic series, got %v", got)
	}
}

func TestFilterYears(t *testing.T) {
	pairs := []PairedReading{
		{Time: time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Time: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Time: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	got := FilterYears(pairs, []int{2015, 2023})
	if len(got) != 2 {
		t.Fatalf("filtered = %d", len(got))
	}
	if got[0].Time.Year() != 2015 || got[1].Time.Year() != 2023 {
		t.Fatalf("wrong years kept: %v", got)
	}
	if len(FilterYears(pairs, nil)) != 3 {
		t.Fatalf("empty filter must keep everything")
	}
}

func TestClipWindow(t *testing.T) {
	rs := []Reading{
		{Time: at(1, 0), Value: 60},
		{Time: at(2, 0), Value: 65},
		{Time: at(3, 0), Value: 70},
	}
	got := ClipWindow(rs, at(1, 12), at(3, 0))
	if len(got) != 2 {
		t.Fatalf("clipped = %d", len(got))
	}
	if got[0].Value != 65 || got[1].Value != 70 {
		t.Fatalf("wrong readings kept: %v", got)
	}
}

func TestLoadBPSeries(t *testing.T) {
	rows := []string{
		"type,sourceName,value,unit,startDate,endDate,creationDate",
		"BloodPressureSystolic,Cuff,128,mmHg,2023-08-28 09:00:00 +0000,2023-08-28 09:00:00 +0000,2023-08-28 09:01:00 +0000",
		"BloodPressureDiastolic,Cuff,84,mmHg,2023-08-28 09:00:00 +0000,2023-08-28 09:00:00 +0000,2023-08-28 09:01:00 +0000",
		// full identifier spelling must classify the same way
		"HKQuantityTypeIdentifierHeartRate,Watch,62,count/min,2023-08-28 08:00:00 +0000,2023-08-28 08:00:00 +0000,2023-08-28 08:01:00 +0000",
		"StepCount,Phone,1200,count,2023-08-28 10:00:00 +0000,2023-08-28 10:00:00 +0000,2023-08-28 10:01:00 +0000",
		"HeartRate,Watch,notanumber,count/min,2023-08-28 11:00:00 +0000,2023-08-28 11:00:00 +0000,2023-08-28 11:01:00 +0000",
	}
	p := writeFixtureCSV(t, rows)
	s, err := LoadBPSeries(p, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s.Systolic) != 1 || len(s.Diastolic) != 1 || len(s.HeartRate) != 1 {
		t.Fatalf("series sizes: sys=%d dia=%d hr=%d", len(s.Systolic), len(s.Diastolic), len(s.HeartRate))
	}
	if s.HeartRate[0].Value != 62 {
		t.Fatalf("heart rate value = %f", s.HeartRate[0].Value)
	}
}

func TestLoadBPSeriesMissingColumns(t *testing.T) {
	p := writeFixtureCSV(t, []string{"a,b,c", "1,2,3"})
	if _, err := LoadBPSeries(p, 0); err == nil {
		t.Fatalf("expected error for missing columns")
	}
}

func TestMean(t *testing.T) {
	if m := Mean([]float64{1, 2, 3}); math.Abs(m-2) > 1e-12 {
		t.Fatalf("mean = %f", m)
	}
	if m := Mean(nil); m != 0 {
		t.Fatalf("empty mean = %f", m)
	}
}
