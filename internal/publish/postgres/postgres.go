// Package postgres implements the publish backend for PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ddlgen/internal/publish"
	"ddlgen/internal/schema"
)

func init() {
	publish.Register("postgres", func(ctx context.Context, cfg publish.Config) (publish.Publisher, error) {
		return New(ctx, cfg.DSN)
	})
}

// maxDeclaredVarchar is the largest length Postgres accepts for varchar(n).
// Wider columns fall back to text.
const maxDeclaredVarchar = 10485760

var dialect = publish.Dialect{
	Name: "postgres",
	TypeName: func(t schema.Type) (string, error) {
		switch t.Kind {
		case schema.KindVarchar:
			if t.Length > maxDeclaredVarchar {
				return "TEXT", nil
			}
			return fmt.Sprintf("VARCHAR(%d)", t.Length), nil
		case schema.KindInteger:
			return "BIGINT", nil
		case schema.KindFloat:
			return "DOUBLE PRECISION", nil
		case schema.KindBoolean:
			return "BOOLEAN", nil
		case schema.KindDate:
			return "DATE", nil
		case schema.KindTimestamp:
			return "TIMESTAMP", nil
		default:
			return "", fmt.Errorf("unsupported type %s", t)
		}
	},
	QuoteIdent: func(name string) string { return `"` + name + `"` },
}

// Publisher applies schemas to a Postgres database over a pgx pool.
type Publisher struct {
	pool *pgxpool.Pool
}

// New connects to the given DSN and verifies the connection.
func New(ctx context.Context, dsn string) (*Publisher, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Publisher{pool: pool}, nil
}

// CreateTable drops any existing table of the same name and creates the new
// one, in a single transaction so readers never observe the gap.
func (p *Publisher) CreateTable(ctx context.Context, tableName string, s schema.Schema) error {
	dropSQL, err := dialect.DropTableSQL(tableName)
	if err != nil {
		return err
	}
	createSQL, err := dialect.CreateTableSQL(tableName, s)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, dropSQL); err != nil {
		return fmt.Errorf("postgres: drop table %s: %w", tableName, err)
	}
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", tableName, err)
	}
	return tx.Commit(ctx)
}

// Close releases the pool.
func (p *Publisher) Close() {
	p.pool.Close()
}
