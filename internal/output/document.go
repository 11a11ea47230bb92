package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dshills/gradlerec/internal/fragment"
	"github.com/dshills/gradlerec/internal/reconcile"
)

// Emit formats for the canonical document.
const (
	EmitProperties = "properties"
	EmitJSON       = "json"
)

// EmitFormats lists the accepted canonical document formats.
var EmitFormats = []string{EmitProperties, EmitJSON}

type jsonDocument struct {
	Tool    string         `json:"tool"`
	Sources []string       `json:"sources"`
	Entries []jsonDocEntry `json:"entries"`
}

type jsonDocEntry struct {
	Path   string         `json:"path"`
	Value  fragment.Value `json:"value"`
	Source string         `json:"source"`
}

// RenderDocument renders the resolved configuration as a canonical document.
//
// The properties form is a header comment naming the merged sources
// followed by one `path = value` line per entry in resolution order. It
// parses back into a fragment with the same entries. The output does not
// depend on timing or environment, so equal inputs give identical bytes.
func RenderDocument(rc *reconcile.ResolvedConfig, format string) ([]byte, error) {
	switch format {
	case EmitProperties, "":
		return renderProperties(rc), nil
	case EmitJSON:
		doc := jsonDocument{Tool: reconcile.ToolName, Sources: rc.Sources(), Entries: []jsonDocEntry{}}
		if doc.Sources == nil {
			doc.Sources = []string{}
		}
		for _, e := range rc.Entries() {
			doc.Entries = append(doc.Entries, jsonDocEntry{Path: e.Path, Value: e.Value, Source: e.Source})
		}
		var buf bytes.Buffer
		if err := writeIndented(&buf, doc, "document"); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
}

func renderProperties(rc *reconcile.ResolvedConfig) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "// Canonical build configuration generated by %s.\n", reconcile.ToolName)
	if sources := rc.Sources(); len(sources) > 0 {
		b.WriteString("// Sources:\n")
		for _, s := range sources {
			fmt.Fprintf(&b, "//   %s\n", flatten(s))
		}
	}
	b.WriteString("\n")
	for _, e := range rc.Entries() {
		fmt.Fprintf(&b, "%s = %s\n", e.Path, flatten(e.Value.String()))
	}
	return []byte(b.String())
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// flatten keeps multi-line expressions on their entry's line.
func flatten(s string) string { return lineBreaks.Replace(s) }
