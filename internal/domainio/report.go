package domainio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteReportJSON renders any report value as indented JSON to w. The
// orchestrator's Report, the diff engine's DomainDiff, and a bare
// diagnostic list all pass through here so every CLI output is
// machine-readable with one flag.
func WriteReportJSON(w io.Writer, report interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// SaveReportJSON writes the report to a file.
func SaveReportJSON(path string, report interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	defer f.Close()
	return WriteReportJSON(f, report)
}
