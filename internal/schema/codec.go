package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// columnJSON is the sidecar wire shape: an ordered array of {name, type}.
type columnJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RenderJSON renders the schema as an indented JSON array of {name, type}
// objects, preserving column order. This is the authoritative round-trippable
// representation; prefer it over DDL text wherever both exist.
func RenderJSON(s Schema) (string, error) {
	out := make([]columnJSON, 0, len(s))
	for _, c := range s {
		out = append(out, columnJSON{Name: c.Name, Type: c.Type.String()})
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseJSON parses a schema from its JSON sidecar form. Names and types are
// upper-cased on load, so hand-edited sidecars with lowercase entries still
// round-trip into canonical form.
func ParseJSON(data []byte) (Schema, error) {
	var cols []columnJSON
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("schema: parse json: %w", err)
	}

	out := make(Schema, 0, len(cols))
	for i, c := range cols {
		t, err := ParseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("schema: json column %d (%s): %w", i, c.Name, err)
		}
		out = append(out, Column{Name: upper.String(strings.TrimSpace(c.Name)), Type: t})
	}
	return out, nil
}

// RenderDDL renders a CREATE OR REPLACE TABLE statement with one column per
// line, in schema order. It fails with ErrInvalidIdentifier when tableName is
// not a valid identifier and with ErrSchemaEmpty when the schema has no
// columns.
func RenderDDL(tableName string, s Schema) (string, error) {
	if !ValidTableName(tableName) {
		return "", fmt.Errorf("%w: table name %q", ErrInvalidIdentifier, tableName)
	}
	if len(s) == 0 {
		return "", ErrSchemaEmpty
	}

	cols := make([]string, 0, len(s))
	for _, c := range s {
		cols = append(cols, c.Name+" "+c.Type.String())
	}
	return "CREATE OR REPLACE TABLE " + tableName + " (\n    " +
		strings.Join(cols, ",\n    ") + "\n);", nil
}

var (
	lineCommentRE  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRE = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// ddlColumnRE matches one "NAME TYPE" or "NAME TYPE(LEN)" definition on a
	// column line, with an optional trailing comma.
	ddlColumnRE = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s+([A-Za-z]+(?:\s*\(\s*\d+\s*\))?)\s*,?$`)
)

// ParseDDL extracts a schema from DDL text previously generated by RenderDDL.
//
// This is a best-effort textual parse, not a SQL parser: SQL comments are
// stripped, the column list between the outer parentheses is scanned line by
// line, and lines that do not look like a column definition are skipped.
// Apply it only to DDL this codec emitted; the JSON sidecar is the durable
// representation.
func ParseDDL(data []byte) (Schema, error) {
	text := string(data)
	text = blockCommentRE.ReplaceAllString(text, "")
	text = lineCommentRE.ReplaceAllString(text, "")

	open := strings.Index(text, "(")
	end := strings.LastIndex(text, ")")
	if open < 0 || end <= open {
		return nil, fmt.Errorf("schema: parse ddl: no column list found")
	}

	var out Schema
	for _, line := range strings.Split(text[open+1:end], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := ddlColumnRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		t, err := ParseType(m[2])
		if err != nil {
			return nil, fmt.Errorf("schema: parse ddl column %q: %w", m[1], err)
		}
		out = append(out, Column{Name: upper.String(m[1]), Type: t})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("schema: parse ddl: no columns recognized")
	}
	return out, nil
}
