package hooks

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/saltyorg/dataroute/internal/config"
	"github.com/saltyorg/dataroute/internal/dataroute"
	"github.com/saltyorg/dataroute/internal/sqlbind"
)

type mapSettings map[string]string

func (m mapSettings) GetSetting(key string) (string, error) {
	return m[key], nil
}

func TestHashPasswords(t *testing.T) {
	hook := HashPasswords(4, "password")
	ctx := context.Background()

	out, err := hook(ctx, "users", "Password", dataroute.RawValue("hunter2"))
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	hash, _ := dataroute.Unwrap(out).(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")) != nil {
		t.Fatalf("value %q is not a hash of the password", hash)
	}

	again, err := hook(ctx, "users", "password", dataroute.RawValue(hash))
	if err != nil || dataroute.Unwrap(again) != hash {
		t.Errorf("existing hash was rehashed: %v, %v", again, err)
	}

	other, _ := hook(ctx, "users", "name", dataroute.RawValue("Ada"))
	if dataroute.Unwrap(other) != "Ada" {
		t.Errorf("unrelated field changed: %v", other)
	}
}

func TestTrimStrings(t *testing.T) {
	hook := TrimStrings()
	ctx := context.Background()

	out, _ := hook(ctx, "users", "name", dataroute.RawValue("  Ada "))
	if dataroute.Unwrap(out) != "Ada" {
		t.Errorf("trimmed = %q", dataroute.Unwrap(out))
	}
	out, _ = hook(ctx, "users", "age", dataroute.RawValue(3))
	if dataroute.Unwrap(out) != 3 {
		t.Errorf("non-string changed: %v", out)
	}
	out, _ = hook(ctx, "users", "name", dataroute.Compare(">", " b "))
	if w, ok := out.(dataroute.Wrapped); !ok || w.Value != "b" || w.Op != ">" {
		t.Errorf("wrapped = %#v", out)
	}
}

func TestContainsRendersLike(t *testing.T) {
	tests := []struct {
		dialect sqlbind.Dialect
		want    string
	}{
		{sqlbind.MySQL, "SELECT * FROM `users` WHERE `name` LIKE CONCAT('%', ?, '%') LIMIT ?"},
		{sqlbind.SQLite, "SELECT * FROM `users` WHERE `name` LIKE '%' || ? || '%' LIMIT ?"},
		{sqlbind.Postgres, `SELECT * FROM "users" WHERE "name" LIKE '%' || $1 || '%' LIMIT $2`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			b := dataroute.NewBuilder(tt.dialect, dataroute.Options{Hooks: dataroute.Hooks{
				ListWhereField: Contains(tt.dialect, "name"),
			}})
			stmt, err := b.Select(context.Background(), "users", dataroute.NewFields().Set("name", "da"), dataroute.Page{})
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			query, args, err := stmt.Render(tt.dialect)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if query != tt.want {
				t.Errorf("query = %q, want %q", query, tt.want)
			}
			if !reflect.DeepEqual(args, []any{"da", dataroute.DefaultListLimit}) {
				t.Errorf("args = %#v", args)
			}
		})
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	var seen []string
	record := func(name string) dataroute.Hook {
		return func(_ context.Context, _, _ string, v dataroute.Value) (dataroute.Value, error) {
			seen = append(seen, name)
			return v, nil
		}
	}

	if Chain() != nil || Chain(nil, nil) != nil {
		t.Error("empty chain should be nil")
	}

	hook := Chain(TrimStrings(), record("a"), Drop("secret"), record("b"))
	out, err := hook(ctx, "users", "name", dataroute.RawValue(" x "))
	if err != nil || dataroute.Unwrap(out) != "x" {
		t.Fatalf("chain = %v, %v", out, err)
	}
	if !reflect.DeepEqual(seen, []string{"a", "b"}) {
		t.Errorf("seen = %v", seen)
	}

	seen = nil
	out, _ = hook(ctx, "users", "secret", dataroute.RawValue("x"))
	if out != dataroute.Drop {
		t.Errorf("secret not dropped: %v", out)
	}
	if !reflect.DeepEqual(seen, []string{"a"}) {
		t.Errorf("hooks after drop ran: %v", seen)
	}

	boom := errors.New("boom")
	failing := Chain(func(context.Context, string, string, dataroute.Value) (dataroute.Value, error) {
		return nil, boom
	}, record("never"))
	if _, err := failing(ctx, "users", "a", dataroute.RawValue(1)); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestFromSettings(t *testing.T) {
	l := config.NewLoader(mapSettings{
		SettingTrimStrings:        "true",
		SettingHashPasswordFields: "password",
		SettingContainsFields:     "name",
	})
	hooks := FromSettings(l, sqlbind.SQLite)

	if hooks.InsertField == nil || hooks.UpdateField == nil || hooks.ListWhereField == nil {
		t.Fatalf("hooks = %+v", hooks)
	}
	if hooks.UpdateWhereField != nil || hooks.RemoveWhereField != nil {
		t.Error("where hooks should stay unset")
	}

	out, err := hooks.InsertField(context.Background(), "users", "name", dataroute.RawValue(" Ada "))
	if err != nil || dataroute.Unwrap(out) != "Ada" {
		t.Errorf("insert hook = %v, %v", out, err)
	}

	empty := FromSettings(config.NewLoader(mapSettings{}), sqlbind.SQLite)
	if empty.InsertField != nil || empty.ListWhereField != nil {
		t.Errorf("hooks from empty settings = %+v", empty)
	}
}
