// Package summary renders catalog descriptors and query results as text:
// YAML for agents and HTTP clients, aligned tables for terminals.
package summary

import (
	"bytes"
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/pgmeta/internal/database"
)

const indent = 2

// YAML renders v as a YAML document.
//
// database.QueryResult is emitted as a sequence of mappings whose keys follow
// the result's column order. Any other value (TableDescriptor,
// DatabaseSummary, prompts) is encoded through its yaml struct tags, which
// fixes the field names and their order.
func YAML(v any) (string, error) {
	var doc any = v
	switch v := v.(type) {
	case database.QueryResult:
		n, err := resultNode(v)
		if err != nil {
			return "", err
		}
		doc = n
	case *database.QueryResult:
		return YAML(*v)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	return buf.String(), nil
}

func resultNode(res database.QueryResult) (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(res.Rows) == 0 {
		seq.Style = yaml.FlowStyle
		return seq, nil
	}

	columns := res.Columns
	for _, row := range res.Rows {
		if len(columns) == 0 {
			columns = sortedKeys(row)
		}
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, col := range columns {
			v, ok := row[col]
			if !ok {
				continue
			}
			var val yaml.Node
			if err := val.Encode(scalar(v)); err != nil {
				return nil, fmt.Errorf("encode column %q: %w", col, err)
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
				&val,
			)
		}
		seq.Content = append(seq.Content, m)
	}
	return seq, nil
}

// scalar turns values that yaml would otherwise encode by their Go struct
// layout into their textual database form. Bytes that are not UTF-8 text
// (bytea) become a base64 !!binary scalar.
func scalar(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		if utf8.Valid(t) {
			return string(t)
		}
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!binary",
			Value: base64.StdEncoding.EncodeToString(t),
		}
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = scalar(t[i])
		}
		return out
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return dv
	}
	return v
}
