package export

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadExportXMLFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "export.xml")
	if err := os.WriteFile(p, []byte(sampleExport), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := ReadExport(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "<HealthData") {
		t.Fatalf("unexpected data: %q", string(data)[:40])
	}
}

func TestReadExportZip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "export.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("apple_health_export/export.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(sampleExport)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := ReadExport(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "<HealthData") {
		t.Fatalf("zip member not read")
	}
}

func TestReadExportZipWithoutExportXML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "other.zip")
	f, _ := os.Create(p)
	zw := zip.NewWriter(f)
	w, _ := zw.Create("readme.txt")
	_, _ = w.Write([]byte("nope"))
	_ = zw.Close()
	_ = f.Close()
	if _, err := ReadExport(p); err == nil {
		t.Fatalf("expected error for zip without export.xml")
	}
}

func TestReadExportDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "apple_health_export")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "export.xml"), []byte(sampleExport), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := ReadExport(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "<HealthData") {
		t.Fatalf("directory export not located")
	}
}
