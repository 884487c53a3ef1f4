package sqlbind

import (
	"errors"
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		stmt     Statement
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "mysql insert set",
			dialect:  MySQL,
			stmt:     New("INSERT INTO ?? SET ?? = ?, ?? = ?", Ident("users"), Ident("name"), "Test_User", Ident("email"), "test@test.com"),
			wantSQL:  "INSERT INTO `users` SET `name` = ?, `email` = ?",
			wantArgs: []any{"Test_User", "test@test.com"},
		},
		{
			name:     "postgres numbers placeholders",
			dialect:  Postgres,
			stmt:     New("SELECT * FROM ?? WHERE ?? = ? AND ?? = ? LIMIT ?", Ident("users"), Ident("a"), 1, Ident("b"), 2, 20),
			wantSQL:  `SELECT * FROM "users" WHERE "a" = $1 AND "b" = $2 LIMIT $3`,
			wantArgs: []any{1, 2, 20},
		},
		{
			name:     "dotted identifier",
			dialect:  SQLite,
			stmt:     New("SELECT * FROM ??", Ident("main.users")),
			wantSQL:  "SELECT * FROM `main`.`users`",
			wantArgs: []any{},
		},
		{
			name:     "quote inside identifier is doubled",
			dialect:  MySQL,
			stmt:     New("DELETE FROM ??", Ident("us`ers; DROP TABLE x")),
			wantSQL:  "DELETE FROM `us``ers; DROP TABLE x`",
			wantArgs: []any{},
		},
		{
			name:     "markers inside string literals are kept",
			dialect:  Postgres,
			stmt:     New("SELECT * FROM ?? WHERE ?? LIKE CONCAT('%?', ?, '''?')", Ident("t"), Ident("c"), "x"),
			wantSQL:  `SELECT * FROM "t" WHERE "c" LIKE CONCAT('%?', $1, '''?')`,
			wantArgs: []any{"x"},
		},
		{
			name:     "nil value binds null",
			dialect:  SQLite,
			stmt:     New("UPDATE ?? SET ?? = ?", Ident("t"), Ident("c"), nil),
			wantSQL:  "UPDATE `t` SET `c` = ?",
			wantArgs: []any{nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.stmt.Render(tt.dialect)
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name string
		stmt Statement
		want error
	}{
		{"value in identifier slot", New("SELECT * FROM ??", "users"), ErrArgumentMismatch},
		{"identifier in value slot", New("SELECT * FROM t WHERE a = ?", Ident("b")), ErrArgumentMismatch},
		{"missing argument", New("SELECT * FROM ?? WHERE ?? = ?", Ident("t"), Ident("a")), ErrArgumentMismatch},
		{"extra argument", New("SELECT * FROM ??", Ident("t"), 1), ErrArgumentMismatch},
		{"marker in comment still binds", New("SELECT 1 -- why?"), ErrArgumentMismatch},
		{"empty identifier", New("SELECT * FROM ??", Ident("")), ErrInvalidIdentifier},
		{"empty identifier part", New("SELECT * FROM ??", Ident("main.")), ErrInvalidIdentifier},
		{"nul in identifier", New("SELECT * FROM ??", Ident("a\x00b")), ErrInvalidIdentifier},
		{"unterminated quote", New("SELECT 'abc FROM ??", Ident("t")), ErrUnterminated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.stmt.Render(MySQL)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAppend(t *testing.T) {
	stmt := New("SELECT * FROM ??", Ident("users"))
	stmt.Append(" WHERE ?? = ?", Ident("name"), "bob")
	stmt.Append(" LIMIT ?", 20)

	if stmt.String() != "SELECT * FROM ?? WHERE ?? = ? LIMIT ?" {
		t.Fatalf("unexpected text %q", stmt.Text)
	}
	if len(stmt.Args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(stmt.Args))
	}
}

func TestDialectByName(t *testing.T) {
	for name, want := range map[string]string{
		"mysql":   "mysql",
		"sqlite3": "sqlite",
		"pgx":     "postgres",
		"DuckDB":  "duckdb",
	} {
		d, err := DialectByName(name)
		if err != nil {
			t.Fatalf("DialectByName(%q) returned error: %v", name, err)
		}
		if d.Name != want {
			t.Errorf("DialectByName(%q) = %q, want %q", name, d.Name, want)
		}
	}

	if _, err := DialectByName("oracle"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}
