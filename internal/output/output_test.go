package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetWriter(t *testing.T) {
	for _, format := range []string{"", "text", "json", "markdown", "md", "sarif"} {
		if _, err := GetWriter(format); err != nil {
			t.Errorf("GetWriter(%q) error: %v", format, err)
		}
	}
	if _, err := GetWriter("html"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestWriteReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	if err := WriteReport(sampleResult(t).Report, "markdown", path); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "## Build Configuration Reconciliation") {
		t.Errorf("unexpected report file:\n%s", data)
	}
}
