package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source reads raw export XML from one kind of input path.
type Source interface {
	CanRead(path string) bool
	Read(path string) ([]byte, error)
}

var sources []Source

// RegisterSource adds a source implementation to the registry.
func RegisterSource(s Source) {
	sources = append(sources, s)
}

// ReadExport resolves an input path (export.xml, the export.zip Apple ships,
// or an unzipped export directory) and returns the raw XML bytes.
func ReadExport(path string) ([]byte, error) {
	for _, s := range sources {
		if s.CanRead(path) {
			return s.Read(path)
		}
	}
	// Fallback: treat as a plain XML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return data, nil
}

func init() {
	RegisterSource(dirSource{})
	RegisterSource(zipSource{})
	RegisterSource(xmlSource{})
}

type xmlSource struct{}

func (xmlSource) CanRead(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xml")
}

func (xmlSource) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export xml: %w", err)
	}
	return data, nil
}

type zipSource struct{}

func (zipSource) CanRead(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zip")
}

func (zipSource) Read(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open export zip: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if strings.EqualFold(filepath.Base(f.Name), "export.xml") {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open zip member %s: %w", f.Name, err)
			}
			defer rc.Close()
			buf, err := io.ReadAll(rc)
			if err != nil {
				return nil, fmt.Errorf("read zip member %s: %w", f.Name, err)
			}
			return buf, nil
		}
	}
	return nil, fmt.Errorf("no export.xml found in %s", path)
}

type dirSource struct{}

func (dirSource) CanRead(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (dirSource) Read(path string) ([]byte, error) {
	candidates := []string{
		filepath.Join(path, "export.xml"),
		filepath.Join(path, "apple_health_export", "export.xml"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return os.ReadFile(c)
		}
	}
	return nil, fmt.Errorf("no export.xml found under %s (looked for export.xml and apple_health_export/export.xml)", path)
}
