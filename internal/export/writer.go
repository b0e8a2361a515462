package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/healthloom-cli/internal/utils"
	"github.com/google/uuid"
)

// WriteOptions controls output naming and the run manifest.
type WriteOptions struct {
	OutDir     string
	Prefix     string    // defaults to "apple_health_export"
	DateFormat string    // defaults to "2006-01-02"
	Now        time.Time // zero means time.Now(); fixed in tests
}

// Manifest records provenance for one conversion run, written next to the
// CSV as <csvname>.manifest.json.
type Manifest struct {
	RunID      string         `json:"run_id"`
	Input      string         `json:"input"`
	Output     string         `json:"output"`
	CreatedAt  time.Time      `json:"created_at"`
	Rows       int            `json:"rows"`
	Columns    int            `json:"columns"`
	TypeCounts map[string]int `json:"type_counts,omitempty"`
	ElapsedMS  int64          `json:"elapsed_ms"`
}

// OutputPath returns the dated CSV path for the options.
func (o WriteOptions) OutputPath() string {
	prefix := o.Prefix
	if prefix == "" {
		prefix = "apple_health_export"
	}
	format := o.DateFormat
	if format == "" {
		format = "2006-01-02"
	}
	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	return filepath.Join(o.OutDir, fmt.Sprintf("%s_%s.csv", prefix, now.Format(format)))
}

// WriteCSV writes the flattened table to the dated CSV path atomically and
// returns the path. The header row is always written, even for an empty
// table.
func WriteCSV(t *Table, opt WriteOptions) (string, error) {
	if err := utils.EnsureDir(opt.OutDir); err != nil {
		return "", fmt.Errorf("ensure output dir: %w", err)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	path := opt.OutputPath()
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteManifest persists a run manifest next to csvPath and returns the
// manifest path.
func WriteManifest(t *Table, input, csvPath string, elapsed time.Duration) (string, error) {
	m := Manifest{
		RunID:      uuid.NewString(),
		Input:      input,
		Output:     csvPath,
		CreatedAt:  time.Now(),
		Rows:       len(t.Rows),
		Columns:    len(t.Columns),
		TypeCounts: t.TypeCounts(),
		ElapsedMS:  elapsed.Milliseconds(),
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return "", err
	}
	path := csvPath + ".manifest.json"
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}
