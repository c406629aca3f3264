package profile

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultRecord []byte

// Load reads a YAML record from path. An empty path loads the embedded
// default record.
func Load(path string) (*Record, error) {
	if path == "" {
		return Parse(defaultRecord)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	rec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return rec, nil
}

// Parse decodes a YAML record. Unknown keys are rejected so typos in a
// hand-edited profile surface at startup instead of as a missing section.
func Parse(data []byte) (*Record, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("parsing profile: name is required")
	}
	return &rec, nil
}
