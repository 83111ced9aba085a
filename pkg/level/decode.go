package level

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a level file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension. ok is false for
// anything that isn't a level file.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// Decode parses a single level definition.
func Decode(data []byte, format Format) (Level, error) {
	return decode(data, format, false)
}

// DecodeStrict is like Decode but rejects unknown fields.
func DecodeStrict(data []byte, format Format) (Level, error) {
	return decode(data, format, true)
}

func decode(data []byte, format Format, strict bool) (Level, error) {
	var l Level
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&l); err != nil {
			return Level{}, fmt.Errorf("failed to unmarshal level json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(&l); err != nil {
			return Level{}, fmt.Errorf("failed to unmarshal level yaml: %w", err)
		}
	default:
		return Level{}, fmt.Errorf("unsupported level format %q", format)
	}
	return l, nil
}
