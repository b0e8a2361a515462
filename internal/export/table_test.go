package export

import (
	"reflect"
	"testing"
)

func makeRecord(pairs ...string) Record {
	r := Record{attrs: map[string]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

func TestFlattenColumnUnion(t *testing.T) {
	records := []Record{
		makeRecord("type", "A", "value", "1"),
		makeRecord("type", "B", "unit", "mmHg", "value", "2"),
	}
	tab := Flatten(records)
	want := []string{"type", "value", "unit"}
	if !reflect.DeepEqual(tab.Columns, want) {
		t.Fatalf("columns = %v, want %v", tab.Columns, want)
	}
	if tab.Rows[0][2] != "" {
		t.Fatalf("missing cell should be empty, got %q", tab.Rows[0][2])
	}
	if tab.Rows[1][2] != "mmHg" {
		t.Fatalf("unit cell = %q", tab.Rows[1][2])
	}
}

func TestStripIdentifiers(t *testing.T) {
	records := []Record{
		makeRecord("type", "HKQuantityTypeIdentifierHeartRate", "HKCharacteristicTypeIdentifierBiologicalSex", "Male"),
		makeRecord("type", "HKCategoryTypeIdentifierSleepAnalysis"),
	}
	tab := Flatten(records)
	tab.StripIdentifiers()
	if tab.Rows[0][0] != "HeartRate" || tab.Rows[1][0] != "SleepAnalysis" {
		t.Fatalf("type values not stripped: %v", tab.Rows)
	}
	if tab.columnIndex("BiologicalSex") < 0 {
		t.Fatalf("characteristic column not renamed: %v", tab.Columns)
	}
}

func TestReorderCanonicalFirst(t *testing.T) {
	records := []Record{
		makeRecord(
			"device", "Watch",
			"startDate", "2023-01-01 00:00:00 +0000",
			"type", "HeartRate",
			"value", "60",
			"com.loopkit.InsulinKit.MetadataKeyScheduledBasalRate", "0.5",
		),
	}
	tab := Flatten(records)
	tab.Reorder()
	want := []string{
		"type", "sourceName", "value", "unit", "startDate", "endDate", "creationDate",
		"com.loopkit.InsulinKit.MetadataKeyScheduledBasalRate",
		"device",
	}
	if !reflect.DeepEqual(tab.Columns, want) {
		t.Fatalf("columns = %v, want %v", tab.Columns, want)
	}
	row := tab.Rows[0]
	if row[0] != "HeartRate" || row[4] != "2023-01-01 00:00:00 +0000" || row[8] != "Watch" {
		t.Fatalf("cells misplaced after reorder: %v", row)
	}
	// absent canonical columns exist but are empty
	if row[1] != "" || row[3] != "" {
		t.Fatalf("created columns should be empty: %v", row)
	}
}

func TestSortByStartDateNewestFirst(t *testing.T) {
	records := []Record{
		makeRecord("type", "A", "startDate", "2019-05-01 08:00:00 +0200"),
		makeRecord("type", "B", "startDate", "2023-01-01 08:00:00 +0100"),
		makeRecord("type", "C", "startDate", "2015-12-24 18:00:00 +0100"),
	}
	tab := Flatten(records)
	tab.SortByStartDate()
	got := []string{tab.Rows[0][0], tab.Rows[1][0], tab.Rows[2][0]}
	want := []string{"B", "A", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sorted order = %v, want %v", got, want)
	}
}

func TestTypeCounts(t *testing.T) {
	records := []Record{
		makeRecord("type", "HeartRate"),
		makeRecord("type", "HeartRate"),
		makeRecord("type", "StepCount"),
	}
	tab := Flatten(records)
	counts := tab.TypeCounts()
	if counts["HeartRate"] != 2 || counts["StepCount"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
