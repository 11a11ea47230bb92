package output

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decodeSARIF(t *testing.T, data []byte) sarifLog {
	t.Helper()
	var sarif sarifLog
	if err := json.Unmarshal(data, &sarif); err != nil {
		t.Fatalf("Invalid SARIF JSON: %v", err)
	}
	if sarif.Version != "2.1.0" {
		t.Errorf("Version = %q, want %q", sarif.Version, "2.1.0")
	}
	if len(sarif.Runs) != 1 {
		t.Fatalf("Runs count = %d, want 1", len(sarif.Runs))
	}
	return sarif
}

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, runSources(t, "app.gradle.kts", baseScript).Report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	sarif := decodeSARIF(t, buf.Bytes())
	if len(sarif.Runs[0].Results) != 0 {
		t.Errorf("Results count = %d, want 0", len(sarif.Runs[0].Results))
	}
}

func TestSARIFWriter_WithDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, sampleResult(t).Report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	run := decodeSARIF(t, buf.Bytes()).Runs[0]

	if run.Tool.Driver.Name != "gradlerec" {
		t.Errorf("Driver name = %q", run.Tool.Driver.Name)
	}
	if len(run.Results) != 2 {
		t.Fatalf("Results count = %d, want 2", len(run.Results))
	}
	if len(run.Tool.Driver.Rules) != 2 {
		t.Errorf("Rules count = %d, want 2", len(run.Tool.Driver.Rules))
	}

	conflict := run.Results[0]
	if conflict.RuleID != "gradlerec/conflict" || conflict.Level != "warning" {
		t.Errorf("first result = %+v", conflict)
	}
	if len(conflict.Locations) != 1 {
		t.Fatalf("Locations count = %d, want 1", len(conflict.Locations))
	}
	loc := conflict.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "override.gradle.kts" {
		t.Errorf("URI = %q", loc.ArtifactLocation.URI)
	}
	if loc.Region == nil || loc.Region.StartLine != 2 {
		t.Errorf("Region = %+v, want startLine 2", loc.Region)
	}
	if conflict.Properties == nil || conflict.Properties.Paths[0] != "android.compileSdk" {
		t.Errorf("Properties = %+v", conflict.Properties)
	}

	signing := run.Results[1]
	if signing.RuleID != "gradlerec/debug-signing" {
		t.Errorf("second rule = %q", signing.RuleID)
	}
	if signing.Locations[0].PhysicalLocation.Region != nil {
		t.Error("diagnostic without a line should have no region")
	}
}

func TestSARIFWriter_ErrorsWithoutFragment(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, invalidResult(t).Report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	run := decodeSARIF(t, buf.Bytes()).Runs[0]
	var required *sarifResult
	for i := range run.Results {
		if run.Results[i].RuleID == "gradlerec/required" {
			required = &run.Results[i]
		}
	}
	if required == nil {
		t.Fatal("missing required-field result")
	}
	if required.Level != "error" {
		t.Errorf("Level = %q, want error", required.Level)
	}
	if len(required.Locations) != 0 {
		t.Errorf("Locations = %+v, want none", required.Locations)
	}
}

func TestSARIFWriter_RuleLevelsMatchResults(t *testing.T) {
	plugins := `plugins {
    id("kotlin-android")
    kotlin("android")
    id("kotlin-android")
}
`
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, runSources(t, "app.gradle.kts", plugins).Report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	run := decodeSARIF(t, buf.Bytes()).Runs[0]

	levels := make(map[string]string)
	for _, r := range run.Tool.Driver.Rules {
		levels[r.ID] = r.DefaultConfig.Level
	}
	if levels["gradlerec/duplicate-plugin"] != "error" || levels["gradlerec/plugin-alias"] != "warning" {
		t.Errorf("rule levels = %v", levels)
	}
	for _, res := range run.Results {
		if res.Level != levels[res.RuleID] {
			t.Errorf("result %s has level %q, rule default is %q", res.RuleID, res.Level, levels[res.RuleID])
		}
	}
}
