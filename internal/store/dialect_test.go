package store

import "testing"

func TestPostgresRebind(t *testing.T) {
	d := postgresDialect{}
	got := d.rebind(`SELECT e FROM uniques WHERE a = ? AND v = ?`)
	want := `SELECT e FROM uniques WHERE a = $1 AND v = $2`
	if got != want {
		t.Fatalf("rebind:\n got %q\nwant %q", got, want)
	}
	if d.rebind("SELECT 1") != "SELECT 1" {
		t.Fatal("rebind altered a query without placeholders")
	}
}

func TestDSNForDatabase(t *testing.T) {
	dsn, err := dsnForDatabase("postgres://user:pw@localhost:5432/postgres?sslmode=disable", "mbrainz")
	if err != nil {
		t.Fatalf("dsnForDatabase: %v", err)
	}
	want := "postgres://user:pw@localhost:5432/mbrainz?sslmode=disable"
	if dsn != want {
		t.Fatalf("got %q, want %q", dsn, want)
	}

	if _, err := dsnForDatabase("host=localhost user=x", "mbrainz"); err == nil {
		t.Fatal("expected error for key=value DSN")
	}
}

func TestValidDatabaseName(t *testing.T) {
	for _, name := range []string{"mbrainz", "mbrainz_test", "db-2"} {
		if err := validDatabaseName(name); err != nil {
			t.Fatalf("%q rejected: %v", name, err)
		}
	}
	for _, name := range []string{"", "2db", "-db", "my db", "db;drop"} {
		if err := validDatabaseName(name); err == nil {
			t.Fatalf("%q accepted", name)
		}
	}
}
