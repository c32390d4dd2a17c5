package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/vinicius-lino-figueiredo/kvdb"
)

// Output formats accepted by --format.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats lists the accepted output formats.
var ValidFormats = []string{FormatJSON, FormatYAML}

// Printer writes command results in the configured format. JSON output has
// one value per line; YAML output is a single document.
type Printer struct {
	Format string
	Writer io.Writer
}

// Documents writes docs. A nil set writes nothing in JSON and an empty list
// in YAML.
func (p *Printer) Documents(rs kvdb.ResultSet) error {
	var docs []kvdb.Document
	if rs != nil {
		docs = rs.Documents()
	}
	if p.Format == FormatYAML {
		list := make([]any, len(docs))
		for n, d := range docs {
			list[n] = d
		}
		return p.yaml(list)
	}
	for _, d := range docs {
		if err := p.json(d); err != nil {
			return err
		}
	}
	return nil
}

// Document writes a single document, or null when h is nil.
func (p *Printer) Document(h kvdb.Handle) error {
	var v any
	if h != nil {
		v = h.Data()
	}
	return p.Value(v)
}

// Value writes any value.
func (p *Printer) Value(v any) error {
	if p.Format == FormatYAML {
		return p.yaml(v)
	}
	return p.json(v)
}

func (p *Printer) json(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(p.Writer, string(b))
	return err
}

func (p *Printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return enc.Close()
}

// parseDocument reads a YAML or JSON mapping given on the command line. An
// empty string yields nil.
func parseDocument(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := yaml.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("parsing document %q: %w", s, err)
	}
	return m, nil
}
