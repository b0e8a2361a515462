package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sample type names after identifier stripping. The full
// HKQuantityTypeIdentifier spellings are accepted too, so reports work
// against CSVs converted with --keep-identifiers.
const (
	typeSystolic  = "BloodPressureSystolic"
	typeDiastolic = "BloodPressureDiastolic"
	typeHeartRate = "HeartRate"

	quantityIdentifierPrefix = "HKQuantityTypeIdentifier"
)

// Reading is one timestamped sample value.
type Reading struct {
	Time  time.Time
	Value float64
}

// PairedReading joins a systolic sample with its nearest diastolic sample.
type PairedReading struct {
	Time      time.Time
	Systolic  float64
	Diastolic float64
}

// BPSeries holds the three sample series a blood pressure report needs,
// each sorted by time ascending.
type BPSeries struct {
	Systolic  []Reading
	Diastolic []Reading
	HeartRate []Reading
}

// LoadBPSeries reads a converted health CSV and extracts the systolic,
// diastolic and heart rate series. Rows with unparseable values or
// timestamps are skipped.
func LoadBPSeries(path string, delim rune) (*BPSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	typeIdx, valueIdx, startIdx := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "type":
			typeIdx = i
		case "value":
			valueIdx = i
		case "startDate":
			startIdx = i
		}
	}
	if typeIdx < 0 || valueIdx < 0 || startIdx < 0 {
		return nil, errors.New("csv is missing type/value/startDate columns (not a converted health export?)")
	}

	s := &BPSeries{}
	row := 1
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++
		maxIdx := typeIdx
		if valueIdx > maxIdx {
			maxIdx = valueIdx
		}
		if startIdx > maxIdx {
			maxIdx = startIdx
		}
		if len(rec) <= maxIdx {
			continue
		}
		kind := strings.TrimPrefix(strings.TrimSpace(rec[typeIdx]), quantityIdentifierPrefix)
		if kind != typeSystolic && kind != typeDiastolic && kind != typeHeartRate {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[valueIdx]), 64)
		if err != nil {
			continue
		}
		t, ok := parseTimeMaybe(strings.TrimSpace(rec[startIdx]))
		if !ok {
			continue
		}
		rd := Reading{Time: t, Value: v}
		switch kind {
		case typeSystolic:
			s.Systolic = append(s.Systolic, rd)
		case typeDiastolic:
			s.Diastolic = append(s.Diastolic, rd)
		case typeHeartRate:
			s.HeartRate = append(s.HeartRate, rd)
		}
	}
	sortReadings(s.Systolic)
	sortReadings(s.Diastolic)
	sortReadings(s.HeartRate)
	return s, nil
}

func sortReadings(rs []Reading) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Time.Before(rs[j].Time) })
}

// PairNearest joins each systolic reading with the diastolic reading whose
// start time is closest (an asof merge, direction nearest). Both inputs must
// be sorted by time ascending.
func PairNearest(sys, dia []Reading) []PairedReading {
	if len(sys) == 0 || len(dia) == 0 {
		return nil
	}
	out := make([]PairedReading, 0, len(sys))
	j := 0
	for _, s := range sys {
		for j+1 < len(dia) && absDuration(dia[j+1].Time.Sub(s.Time)) <= absDuration(dia[j].Time.Sub(s.Time)) {
			j++
		}
		out = append(out, PairedReading{Time: s.Time, Systolic: s.Value, Diastolic: dia[j].Value})
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// FilterYears keeps paired readings whose start year is in years. An empty
// years slice keeps everything.
func FilterYears(pairs []PairedReading, years []int) []PairedReading {
	if len(years) == 0 {
		return pairs
	}
	keep := make(map[int]bool, len(years))
	for _, y := range years {
		keep[y] = true
	}
	out := make([]PairedReading, 0, len(pairs))
	for _, p := range pairs {
		if keep[p.Time.Year()] {
			out = append(out, p)
		}
	}
	return out
}

// ClipWindow keeps readings whose time falls within [from, to] inclusive.
func ClipWindow(rs []Reading, from, to time.Time) []Reading {
	out := make([]Reading, 0, len(rs))
	for _, r := range rs {
		if r.Time.Before(from) || r.Time.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Mean returns the arithmetic mean of the values, or 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
