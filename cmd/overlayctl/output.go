package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format selects how command results are rendered.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func parseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (json or yaml)", raw)
	}
}

// writeResult renders data to w. YAML output reuses the json struct tags.
func writeResult(w io.Writer, format Format, data any) error {
	switch format {
	case FormatYAML:
		out, err := yaml.MarshalWithOptions(data, yaml.IndentSequence(true))
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}
