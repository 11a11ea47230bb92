package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/gradlerec/internal/reconcile"
)

// JSONWriter outputs the full report as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *reconcile.Report) error {
	return writeIndented(w, report, "JSON")
}

func writeIndented(w io.Writer, v any, what string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", what, err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing %s: %w", what, err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
