package output

import (
	"io"

	"github.com/dshills/gradlerec/internal/diag"
	"github.com/dshills/gradlerec/internal/reconcile"
)

// SARIFWriter outputs diagnostics in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *reconcile.Report) error {
	return writeIndented(w, buildSARIF(report), "SARIF")
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLocation   `json:"locations,omitempty"`
	Properties *sarifResultProps `json:"properties,omitempty"`
}

type sarifResultProps struct {
	Paths []string `json:"paths,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

var ruleDescriptions = map[diag.Code]string{
	diag.CodeParse:        "Fragment could not be parsed",
	diag.CodeSyntax:       "Unrecognized syntax was skipped",
	diag.CodeReassigned:   "Path assigned more than once in a fragment",
	diag.CodeConflict:     "Fragments disagree on a value",
	diag.CodeStrategy:     "Strategy could not apply and fell back",
	diag.CodeSDKOrder:     "SDK levels out of order",
	diag.CodeSDKSymbolic:  "SDK level is not a literal",
	diag.CodeRequired:     "Required field missing",
	diag.CodePluginDup:    "Plugin applied more than once",
	diag.CodePluginAlias:  "Plugin applied under two names",
	diag.CodeMinify:       "Minification without ProGuard rules",
	diag.CodeDebugSigning: "Release build signed with debug key",
}

func buildSARIF(report *reconcile.Report) sarifLog {
	var rules []sarifRule
	seen := make(map[string]bool)
	results := []sarifResult{}

	for _, d := range report.Diagnostics {
		ruleID := ruleIDFor(d.Code)
		if !seen[ruleID] {
			seen[ruleID] = true
			desc := ruleDescriptions[d.Code]
			if desc == "" {
				desc = string(d.Code)
			}
			rules = append(rules, sarifRule{
				ID:               ruleID,
				Name:             string(d.Code),
				ShortDescription: sarifMessage{Text: desc},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(d.Severity)},
			})
		}

		result := sarifResult{
			RuleID:  ruleID,
			Level:   severityToLevel(d.Severity),
			Message: sarifMessage{Text: d.Message},
		}
		if d.Fragment != "" && d.Fragment != reconcile.PolicySource {
			loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: d.Fragment},
			}}
			if d.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: d.Line}
			}
			result.Locations = []sarifLocation{loc}
		}
		if len(d.Paths) > 0 {
			result.Properties = &sarifResultProps{Paths: d.Paths}
		}
		results = append(results, result)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           reconcile.ToolName,
						Version:        report.Version,
						InformationURI: "https://github.com/dshills/gradlerec",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

func severityToLevel(s diag.Severity) string {
	if s == diag.SeverityError {
		return "error"
	}
	return "warning"
}

func ruleIDFor(c diag.Code) string {
	return reconcile.ToolName + "/" + string(c)
}
