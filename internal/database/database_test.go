package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New("oracle", "whatever"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var version int
	if err := db.queryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

func TestExecAndQuery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	affected, err := db.Exec(ctx, "INSERT INTO users (name, email, password) VALUES (?, ?, ?)", "Ada", "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}

	// Blob values come back as strings
	if _, err := db.Exec(ctx, "INSERT INTO users (name, api_key) VALUES (?, ?)", "Bob", []byte("k-123")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	rows, err := db.Query(ctx, "SELECT name, email, api_key FROM users ORDER BY id")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	want := []map[string]any{
		{"name": "Ada", "email": "ada@example.com", "api_key": nil},
		{"name": "Bob", "email": nil, "api_key": "k-123"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %#v, want %#v", rows, want)
	}

	empty, err := db.Query(ctx, "SELECT * FROM users WHERE id < 0")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no rows, got %d", len(empty))
	}
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)

	if got, err := db.GetSetting("missing"); err != nil || got != "" {
		t.Fatalf("GetSetting(missing) = %q, %v", got, err)
	}

	if err := db.SetSetting("data.default_limit", "50"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := db.SetSetting("data.default_limit", "75"); err != nil {
		t.Fatalf("SetSetting overwrite failed: %v", err)
	}
	if got, _ := db.GetSetting("data.default_limit"); got != "75" {
		t.Errorf("GetSetting = %q, want 75", got)
	}

	if err := db.InitializeDefaults(); err != nil {
		t.Fatalf("InitializeDefaults failed: %v", err)
	}
	all, err := db.GetAllSettings()
	if err != nil {
		t.Fatalf("GetAllSettings failed: %v", err)
	}
	if all["log.level"] != "info" {
		t.Errorf("log.level = %q, want info", all["log.level"])
	}
	if all["data.default_limit"] != "75" {
		t.Errorf("data.default_limit = %q, want 75", all["data.default_limit"])
	}

	if err := db.DeleteSetting("data.default_limit"); err != nil {
		t.Fatalf("DeleteSetting failed: %v", err)
	}
	if got, _ := db.GetSetting("data.default_limit"); got != "" {
		t.Errorf("deleted setting = %q", got)
	}
}

func TestSplitSQLStatements(t *testing.T) {
	script := `
		-- comment only
		CREATE TABLE a (id INTEGER);

		INSERT INTO a VALUES (1);
		INSERT INTO a
		VALUES (2)
	`
	got := SplitSQLStatements(script)
	if len(got) != 3 {
		t.Fatalf("got %d statements: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id INTEGER);" {
		t.Errorf("first statement = %q", got[0])
	}
}

type recordingExecer struct {
	queries []string
	failAt  int
}

func (r *recordingExecer) Exec(_ context.Context, query string, _ ...any) (int64, error) {
	r.queries = append(r.queries, query)
	if len(r.queries) == r.failAt {
		return 0, errors.New("boom")
	}
	return 0, nil
}

func TestRunScript(t *testing.T) {
	ex := &recordingExecer{}
	if err := RunScript(context.Background(), ex, "SELECT 1;\nSELECT 2;"); err != nil {
		t.Fatalf("RunScript failed: %v", err)
	}
	if len(ex.queries) != 2 {
		t.Errorf("ran %d statements, want 2", len(ex.queries))
	}

	ex = &recordingExecer{failAt: 1}
	if err := RunScript(context.Background(), ex, "SELECT 1;\nSELECT 2;"); err == nil {
		t.Fatal("expected error")
	}
	if len(ex.queries) != 1 {
		t.Errorf("ran %d statements after failure, want 1", len(ex.queries))
	}
}

func TestOptimize(t *testing.T) {
	db := openTestDB(t)
	if err := db.Optimize(); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
}

func TestTransaction(t *testing.T) {
	db := openTestDB(t)

	err := db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO users (name) VALUES (?)", "kept"); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	boom := errors.New("boom")
	err = db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO users (name) VALUES (?)", "rolled back"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	rows, err := db.Query(context.Background(), "SELECT name FROM users")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "kept" {
		t.Errorf("rows = %v", rows)
	}
}
