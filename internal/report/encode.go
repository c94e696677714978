package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// Format selects an output encoding.
type Format string

// Supported output formats.
const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an output format name. Empty means human.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatHuman:
		return FormatHuman, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported output format %q (want human, json or yaml)", s)
}

// Write renders v in the given format. Human output is only defined for a
// types.Report; other values fall back to YAML.
func Write(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		return writeYAML(w, v)
	default:
		if rep, ok := v.(types.Report); ok {
			Print(w, rep, false)
			return nil
		}
		return writeYAML(w, v)
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
