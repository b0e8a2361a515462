package export

import (
	"sort"
	"strings"
)

// Identifier prefixes Apple prepends to sample types and characteristic
// columns. Stripped for readability in the output table.
const (
	quantityPrefix       = "HKQuantityTypeIdentifier"
	categoryPrefix       = "HKCategoryTypeIdentifier"
	characteristicPrefix = "HKCharacteristicTypeIdentifier"
)

// Canonical leading columns, in output order.
var shiftedColumns = []string{
	"type",
	"sourceName",
	"value",
	"unit",
	"startDate",
	"endDate",
	"creationDate",
}

// Loop/Nightscout metadata columns that follow the canonical block when the
// export contains them.
var loopColumns = []string{
	"com.loopkit.InsulinKit.MetadataKeyProgrammedTempBasalRate",
	"com.loopkit.InsulinKit.MetadataKeyScheduledBasalRate",
	"com.loudnate.CarbKit.HKMetadataKey.AbsorptionTimeMinutes",
}

// Table is a rectangular projection of parsed records. Cells are strings;
// a record missing a column renders as the empty string.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Flatten builds the rectangular table from parsed records. The column set is
// the union of all record keys in first-appearance order.
func Flatten(records []Record) *Table {
	t := &Table{}
	index := map[string]int{}
	for _, r := range records {
		for _, k := range r.Keys() {
			if _, ok := index[k]; !ok {
				index[k] = len(t.Columns)
				t.Columns = append(t.Columns, k)
			}
		}
	}
	for _, r := range records {
		row := make([]string, len(t.Columns))
		for _, k := range r.Keys() {
			v, _ := r.Get(k)
			row[index[k]] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// StripIdentifiers removes the HK identifier prefixes: quantity/category
// prefixes from values of the type column, the characteristic prefix from
// column names.
func (t *Table) StripIdentifiers() {
	if idx := t.columnIndex("type"); idx >= 0 {
		for _, row := range t.Rows {
			row[idx] = strings.ReplaceAll(row[idx], quantityPrefix, "")
			row[idx] = strings.ReplaceAll(row[idx], categoryPrefix, "")
		}
	}
	for i, name := range t.Columns {
		t.Columns[i] = strings.ReplaceAll(name, characteristicPrefix, "")
	}
}

// Reorder moves the canonical columns to the front, creating any that are
// absent as empty columns, followed by the Loop metadata columns when present
// and the remaining columns in first-appearance order.
func (t *Table) Reorder() {
	ordered := make([]string, 0, len(t.Columns)+len(shiftedColumns))
	ordered = append(ordered, shiftedColumns...)
	for _, c := range loopColumns {
		if t.columnIndex(c) >= 0 {
			ordered = append(ordered, c)
		}
	}
	leading := map[string]bool{}
	for _, c := range ordered {
		leading[c] = true
	}
	for _, c := range t.Columns {
		if !leading[c] {
			ordered = append(ordered, c)
		}
	}

	oldIndex := map[string]int{}
	for i, c := range t.Columns {
		oldIndex[c] = i
	}
	for ri, row := range t.Rows {
		next := make([]string, len(ordered))
		for i, c := range ordered {
			if j, ok := oldIndex[c]; ok {
				next[i] = row[j]
			}
		}
		t.Rows[ri] = next
	}
	t.Columns = ordered
}

// SortByStartDate orders rows newest first. Apple's timestamps are
// fixed-width ("2006-01-02 15:04:05 -0700"), so a descending string sort is
// chronological; rows without a startDate sink to the bottom.
func (t *Table) SortByStartDate() {
	idx := t.columnIndex("startDate")
	if idx < 0 {
		return
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i][idx] > t.Rows[j][idx]
	})
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// TypeCounts tallies rows per value of the type column.
func (t *Table) TypeCounts() map[string]int {
	idx := t.columnIndex("type")
	if idx < 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, row := range t.Rows {
		counts[row[idx]]++
	}
	return counts
}
