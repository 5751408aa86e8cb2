// Package output renders CLI results as tables, JSON, or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// WriteObject serializes obj to w as indented JSON or YAML. Table output
// is per-type; use WriteAccounts for account listings.
func WriteObject(w io.Writer, format Format, obj any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(obj)
	case FormatYAML:
		data, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatTable:
		return fmt.Errorf("no table writer for this object type")
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
