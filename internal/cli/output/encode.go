package output

import (
	"encoding/json"
	"io"

	"go.yaml.in/yaml/v3"
)

// FormatterFunc adapts a plain function to Formatter.
type FormatterFunc func(w io.Writer, data any) error

// Format calls f(w, data).
func (f FormatterFunc) Format(w io.Writer, data any) error { return f(w, data) }

// JSON writes data as indented JSON. HTML characters are left unescaped so
// claim values print as stored.
var JSON Formatter = FormatterFunc(func(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
})

// YAML writes data as YAML using the yaml struct tags.
var YAML Formatter = FormatterFunc(func(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
})
