// Package schema defines the column/type model shared by the sampler,
// inferencer, evolution guard, and the DDL/JSON codec.
//
// A Schema is an ordered list of columns. Order is significant: it reflects
// source column order and is preserved by every renderer. Schemas are value
// types; nothing in this package mutates a Schema after construction.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxVarcharLength is the length assumed for a VARCHAR declared without an
// explicit length. It matches the practical cap of the target warehouse, so
// an unbounded VARCHAR always compares as the widest possible string type.
const MaxVarcharLength = 16777216

var (
	// ErrSchemaEmpty indicates a schema with zero columns where at least one
	// is required (inference output, DDL rendering).
	ErrSchemaEmpty = errors.New("schema: empty schema")

	// ErrInvalidIdentifier indicates a table name that is not a valid
	// identifier ([A-Za-z][A-Za-z0-9_]*).
	ErrInvalidIdentifier = errors.New("schema: invalid identifier")
)

// Kind enumerates the closed set of column type families.
type Kind string

const (
	KindVarchar   Kind = "VARCHAR"
	KindInteger   Kind = "INTEGER"
	KindFloat     Kind = "FLOAT"
	KindBoolean   Kind = "BOOLEAN"
	KindDate      Kind = "DATE"
	KindTimestamp Kind = "TIMESTAMP"
)

// Type is a column type tag. Length is meaningful only for KindVarchar.
type Type struct {
	Kind   Kind
	Length int
}

// Convenience values for the length-less kinds.
var (
	Integer   = Type{Kind: KindInteger}
	Float     = Type{Kind: KindFloat}
	Boolean   = Type{Kind: KindBoolean}
	Date      = Type{Kind: KindDate}
	Timestamp = Type{Kind: KindTimestamp}
)

// Varchar returns a VARCHAR type of the given length.
func Varchar(length int) Type {
	return Type{Kind: KindVarchar, Length: length}
}

// String renders the type the way the DDL emitter writes it.
func (t Type) String() string {
	if t.Kind == KindVarchar {
		return fmt.Sprintf("VARCHAR(%d)", t.Length)
	}
	return string(t.Kind)
}

// typeRE matches "NAME" or "NAME(123)" with optional interior whitespace.
var typeRE = regexp.MustCompile(`^([A-Za-z]+)\s*(?:\(\s*(\d+)\s*\))?$`)

// ParseType parses a rendered type string back into a Type. Input is
// upper-cased first, so "varchar(16)" and "VARCHAR(16)" are equivalent.
// A VARCHAR without a length is treated as VARCHAR(MaxVarcharLength).
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	m := typeRE.FindStringSubmatch(s)
	if m == nil {
		return Type{}, fmt.Errorf("schema: unparseable type %q", s)
	}

	kind := Kind(upper.String(m[1]))
	switch kind {
	case KindVarchar:
		if m[2] == "" {
			return Varchar(MaxVarcharLength), nil
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n <= 0 {
			return Type{}, fmt.Errorf("schema: invalid varchar length %q", m[2])
		}
		return Varchar(n), nil
	case KindInteger, KindFloat, KindBoolean, KindDate, KindTimestamp:
		if m[2] != "" {
			return Type{}, fmt.Errorf("schema: type %s does not take a length", kind)
		}
		return Type{Kind: kind}, nil
	default:
		return Type{}, fmt.Errorf("schema: unknown type %q", s)
	}
}

// Column is a named, typed table column.
type Column struct {
	Name string
	Type Type
}

// Schema is an ordered sequence of columns. Duplicate names are preserved in
// order; deduplication, when needed, is the caller's concern.
type Schema []Column

// upper is a locale-neutral upper-caser used for identifiers.
var upper = cases.Upper(language.Und)

var tableNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidTableName reports whether name is acceptable as a DDL table name.
func ValidTableName(name string) bool {
	return tableNameRE.MatchString(name)
}

// Normalize converts a raw source header into a safe column identifier.
//
// Every maximal run of characters outside [A-Za-z0-9] becomes a single
// underscore, the result is upper-cased and stripped of leading/trailing
// underscores. A result that is empty or does not start with a letter gets a
// COL_ prefix; a header that normalizes to nothing at all falls back to
// COL_<position>, where position is the zero-based column index. The output
// always matches [A-Z][A-Z0-9_]*.
func Normalize(raw string, position int) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastUnderscore := false
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	name := strings.Trim(upper.String(b.String()), "_")
	if name == "" {
		return fmt.Sprintf("COL_%d", position)
	}
	if name[0] < 'A' || name[0] > 'Z' {
		name = "COL_" + name
	}
	return name
}
