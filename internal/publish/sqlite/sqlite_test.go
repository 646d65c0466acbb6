package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"ddlgen/internal/publish"
	"ddlgen/internal/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		{Name: "ID", Type: schema.Integer},
		{Name: "PRICE", Type: schema.Float},
		{Name: "ACTIVE", Type: schema.Boolean},
		{Name: "DAY", Type: schema.Date},
		{Name: "SEEN_AT", Type: schema.Timestamp},
		{Name: "NOTE", Type: schema.Varchar(16)},
	}
}

func openTestPublisher(t *testing.T) (*Publisher, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	p, err := New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)
	return p, dsn
}

func columnNames(t *testing.T, dsn, table string) []string {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		t.Fatalf("pragma_table_info: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func TestCreateTable(t *testing.T) {
	p, dsn := openTestPublisher(t)

	if err := p.CreateTable(context.Background(), "trades", testSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	got := columnNames(t, dsn, "trades")
	want := []string{"ID", "PRICE", "ACTIVE", "DAY", "SEEN_AT", "NOTE"}
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCreateTableReplacesExisting(t *testing.T) {
	p, dsn := openTestPublisher(t)
	ctx := context.Background()

	if err := p.CreateTable(ctx, "trades", testSchema()); err != nil {
		t.Fatalf("first CreateTable: %v", err)
	}

	narrow := schema.Schema{{Name: "ONLY", Type: schema.Varchar(4)}}
	if err := p.CreateTable(ctx, "trades", narrow); err != nil {
		t.Fatalf("second CreateTable: %v", err)
	}

	got := columnNames(t, dsn, "trades")
	if len(got) != 1 || got[0] != "ONLY" {
		t.Fatalf("columns after replace = %v", got)
	}
}

func TestCreateTableInvalidName(t *testing.T) {
	p, _ := openTestPublisher(t)
	if err := p.CreateTable(context.Background(), "1bad", testSchema()); err == nil {
		t.Fatal("expected error for invalid table name")
	}
}

func TestRegisteredWithPublish(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "reg.db")
	p, err := publish.New(context.Background(), publish.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("publish.New: %v", err)
	}
	defer p.Close()

	if err := p.CreateTable(context.Background(), "t", testSchema()); err != nil {
		t.Fatalf("CreateTable via registry: %v", err)
	}
}
