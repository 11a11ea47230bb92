package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/dshills/gradlerec/internal/reconcile"
)

func TestJSONWriter(t *testing.T) {
	report := sampleResult(t).Report

	var buf bytes.Buffer
	w := &JSONWriter{}
	if err := w.Write(&buf, report); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var parsed reconcile.Report
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if parsed.Tool != reconcile.ToolName {
		t.Errorf("Tool = %q, want %q", parsed.Tool, reconcile.ToolName)
	}
	if len(parsed.Conflicts) != 1 || parsed.Conflicts[0].Path != "android.compileSdk" {
		t.Errorf("Conflicts = %+v", parsed.Conflicts)
	}
	if len(parsed.Resolved) != 5 {
		t.Errorf("Resolved count = %d, want 5", len(parsed.Resolved))
	}
	if parsed.Resolved[1].Path != "android.compileSdk" || parsed.Resolved[1].Value.String() != "35" {
		t.Errorf("Resolved[1] = %+v", parsed.Resolved[1])
	}
	if parsed.Summary.Counts.Warnings != 2 {
		t.Errorf("Warnings = %d, want 2", parsed.Summary.Counts.Warnings)
	}
}

func TestJSONWriter_EmptyCollections(t *testing.T) {
	res := runSources(t, "app.gradle.kts", baseScript)

	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, res.Report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	for _, key := range []string{"conflicts", "diagnostics"} {
		if string(raw[key]) != "[]" {
			t.Errorf("%s = %s, want []", key, raw[key])
		}
	}
}
