// Package sqlite implements the publish backend for SQLite via database/sql
// and the CGO-free modernc driver. It is mainly useful for local inspection
// of dump schemas without standing up a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"ddlgen/internal/publish"
	"ddlgen/internal/schema"
)

func init() {
	publish.Register("sqlite", func(ctx context.Context, cfg publish.Config) (publish.Publisher, error) {
		return New(ctx, cfg.DSN)
	})
}

// SQLite ignores declared varchar lengths, so every string column is TEXT
// and dates are stored as TEXT in ISO-8601 form.
var dialect = publish.Dialect{
	Name: "sqlite",
	TypeName: func(t schema.Type) (string, error) {
		switch t.Kind {
		case schema.KindVarchar, schema.KindDate, schema.KindTimestamp:
			return "TEXT", nil
		case schema.KindInteger, schema.KindBoolean:
			return "INTEGER", nil
		case schema.KindFloat:
			return "REAL", nil
		default:
			return "", fmt.Errorf("unsupported type %s", t)
		}
	},
	QuoteIdent: func(name string) string { return `"` + name + `"` },
}

// Publisher applies schemas to a SQLite database file.
type Publisher struct {
	db *sql.DB
}

// New opens the database at the given path (or ":memory:").
func New(ctx context.Context, dsn string) (*Publisher, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Publisher{db: db}, nil
}

// CreateTable drops any existing table of the same name and creates the new
// one inside a transaction.
func (p *Publisher) CreateTable(ctx context.Context, tableName string, s schema.Schema) error {
	dropSQL, err := dialect.DropTableSQL(tableName)
	if err != nil {
		return err
	}
	createSQL, err := dialect.CreateTableSQL(tableName, s)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("sqlite: drop table %s: %w", tableName, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", tableName, err)
	}
	return tx.Commit()
}

// Close closes the database.
func (p *Publisher) Close() {
	_ = p.db.Close()
}
