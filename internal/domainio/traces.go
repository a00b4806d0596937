package domainio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/specverify/verifier/internal/trace"
)

// traceFile accepts both a bare array of traces and the wrapped
// {"traces": [...]} shape runtime exporters commonly produce.
type traceFile struct {
	Traces []trace.Trace `json:"traces"`
}

// LoadTraces reads execution traces from a JSON file (spec.md §6:
// traces are JSON-shaped).
func LoadTraces(path string) ([]trace.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading traces %s: %w", path, err)
	}
	return ParseTraces(data, path)
}

// ParseTraces parses trace JSON from bytes.
func ParseTraces(data []byte, path string) ([]trace.Trace, error) {
	var bare []trace.Trace
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var wrapped traceFile
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing traces %s: %w", path, err)
	}
	return wrapped.Traces, nil
}
