// Package publish applies generated schemas to live databases.
//
// The DDL the pipeline renders targets Snowflake syntax; warehouses are not
// the only consumers, though. Teams mirror the dump tables into Postgres,
// SQL Server, or a local SQLite file for ad-hoc work, and each engine spells
// types and "replace" differently. A Publisher owns that translation: it
// receives the engine-neutral schema and issues whatever statements its
// backend needs.
package publish

import (
	"context"
	"fmt"
	"sync"

	"ddlgen/internal/schema"
)

// Config selects and configures a backend.
//
// Kind must match a registered backend kind ("postgres", "mssql", "sqlite").
// DSN is passed through to the backend factory; validation is
// backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Publisher applies schemas to one database.
type Publisher interface {
	// CreateTable creates the table with replace semantics: an existing
	// table of the same name is dropped first.
	CreateTable(ctx context.Context, tableName string, s schema.Schema) error

	// Close releases backend resources. Treat as "call once".
	Close()
}

type factory func(ctx context.Context, cfg Config) (Publisher, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call it from an init() function
// in a backend package.
//
// Panics on empty kind, nil factory, or duplicate registration; ambiguous
// backend selection should fail at startup, not at publish time.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("publish: Register called with empty kind")
	}
	if f == nil {
		panic("publish: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("publish: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Publisher using the registered backend factory.
func New(ctx context.Context, cfg Config) (Publisher, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("publish: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported publish kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Dialect maps engine-neutral column types to one engine's type names.
type Dialect struct {
	// Name identifies the dialect in errors.
	Name string

	// TypeName renders one column type.
	TypeName func(t schema.Type) (string, error)

	// QuoteIdent quotes an identifier for this engine.
	QuoteIdent func(name string) string
}

// CreateTableSQL renders a CREATE TABLE statement for the dialect. The drop
// happens separately (see DropTableSQL) because not every engine supports a
// single-statement replace.
func (d Dialect) CreateTableSQL(tableName string, s schema.Schema) (string, error) {
	if !schema.ValidTableName(tableName) {
		return "", fmt.Errorf("%w: table name %q", schema.ErrInvalidIdentifier, tableName)
	}
	if len(s) == 0 {
		return "", schema.ErrSchemaEmpty
	}

	cols := make([]string, 0, len(s))
	for _, c := range s {
		typeName, err := d.TypeName(c.Type)
		if err != nil {
			return "", fmt.Errorf("%s: column %s: %w", d.Name, c.Name, err)
		}
		cols = append(cols, fmt.Sprintf("    %s %s", d.QuoteIdent(c.Name), typeName))
	}

	out := "CREATE TABLE " + d.QuoteIdent(tableName) + " (\n"
	for i, col := range cols {
		out += col
		if i < len(cols)-1 {
			out += ","
		}
		out += "\n"
	}
	return out + ")", nil
}

// DropTableSQL renders the DROP TABLE IF EXISTS statement for the dialect.
func (d Dialect) DropTableSQL(tableName string) (string, error) {
	if !schema.ValidTableName(tableName) {
		return "", fmt.Errorf("%w: table name %q", schema.ErrInvalidIdentifier, tableName)
	}
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(tableName), nil
}
