package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// dialect covers the SQL differences between the two backends.
type dialect interface {
	name() string
	driver() string
	rebind(query string) string
	setup() []string
	migrations() []string
	newEntity(ctx context.Context, tx *sql.Tx) (int64, error)
	tunePool(db *sql.DB)
}

type sqliteDialect struct{}

func (sqliteDialect) name() string   { return "sqlite" }
func (sqliteDialect) driver() string { return "sqlite" }

func (sqliteDialect) rebind(query string) string { return query }

func (sqliteDialect) setup() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
}

func (sqliteDialect) migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS attrs (
			name TEXT PRIMARY KEY,
			value_type TEXT NOT NULL,
			cardinality TEXT NOT NULL,
			uniqueness TEXT NOT NULL DEFAULT '',
			doc TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id INTEGER PRIMARY KEY AUTOINCREMENT
		)`,
		`CREATE TABLE IF NOT EXISTS datoms (
			e INTEGER NOT NULL,
			a TEXT NOT NULL,
			v TEXT NOT NULL,
			vtype TEXT NOT NULL,
			UNIQUE (e, a, v)
		)`,
		`CREATE INDEX IF NOT EXISTS datoms_ave ON datoms (a, v)`,
		`CREATE TABLE IF NOT EXISTS uniques (
			a TEXT NOT NULL,
			v TEXT NOT NULL,
			e INTEGER NOT NULL,
			UNIQUE (a, v)
		)`,
	}
}

func (sqliteDialect) newEntity(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO entities DEFAULT VALUES`)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SQLite allows one writer at a time. Serializing at the pool keeps
// concurrent loader workers from burning the busy timeout against each
// other.
func (sqliteDialect) tunePool(db *sql.DB) {
	db.SetMaxOpenConns(1)
}

type postgresDialect struct{}

func (postgresDialect) name() string   { return "postgres" }
func (postgresDialect) driver() string { return "pgx" }

func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) setup() []string { return nil }

func (postgresDialect) migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS attrs (
			name TEXT PRIMARY KEY,
			value_type TEXT NOT NULL,
			cardinality TEXT NOT NULL,
			uniqueness TEXT NOT NULL DEFAULT '',
			doc TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS datoms (
			e BIGINT NOT NULL,
			a TEXT NOT NULL,
			v TEXT NOT NULL,
			vtype TEXT NOT NULL,
			UNIQUE (e, a, v)
		)`,
		`CREATE INDEX IF NOT EXISTS datoms_ave ON datoms (a, v)`,
		`CREATE TABLE IF NOT EXISTS uniques (
			a TEXT NOT NULL,
			v TEXT NOT NULL,
			e BIGINT NOT NULL,
			UNIQUE (a, v)
		)`,
	}
}

func (postgresDialect) newEntity(ctx context.Context, tx *sql.Tx) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `INSERT INTO entities DEFAULT VALUES RETURNING id`).Scan(&id)
	return id, err
}

func (postgresDialect) tunePool(db *sql.DB) {}

// sqliteClient keeps one database file per name under a directory.
type sqliteClient struct {
	dir string
}

func (c *sqliteClient) path(name string) (string, error) {
	if err := validDatabaseName(name); err != nil {
		return "", err
	}
	return filepath.Join(c.dir, name+".db"), nil
}

func (c *sqliteClient) CreateDatabase(ctx context.Context, name string) (bool, error) {
	path, err := c.path(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return false, err
	}
	conn, err := openSQL(ctx, sqliteDialect{}, path)
	if err != nil {
		return false, err
	}
	return true, conn.Close()
}

func (c *sqliteClient) Connect(ctx context.Context, name string) (Conn, error) {
	path, err := c.path(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %q does not exist, create it first: %w", name, err)
	}
	return openSQL(ctx, sqliteDialect{}, path)
}

// postgresClient reaches a server through an administrative DSN and swaps
// the database per connect.
type postgresClient struct {
	dsn string
}

func (c *postgresClient) CreateDatabase(ctx context.Context, name string) (bool, error) {
	if err := validDatabaseName(name); err != nil {
		return false, err
	}
	admin, err := sql.Open("pgx", c.dsn)
	if err != nil {
		return false, fmt.Errorf("open admin connection: %w", err)
	}
	defer admin.Close()

	var exists bool
	row := admin.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("query pg_database: %w", err)
	}
	if exists {
		return false, nil
	}
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %s: %w", name, err)
	}
	return true, nil
}

func (c *postgresClient) Connect(ctx context.Context, name string) (Conn, error) {
	dsn, err := dsnForDatabase(c.dsn, name)
	if err != nil {
		return nil, err
	}
	return openSQL(ctx, postgresDialect{}, dsn)
}

// dsnForDatabase swaps the database of a postgres URL DSN.
func dsnForDatabase(dsn, name string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("postgres DSN must be a postgres:// URL, got scheme %q", u.Scheme)
	}
	u.Path = "/" + name
	return u.String(), nil
}

// validDatabaseName keeps names usable as both file names and SQL
// identifiers, matching the config-level rule.
func validDatabaseName(name string) error {
	if name == "" {
		return errors.New("database name is empty")
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9', r == '_', r == '-':
			if i == 0 {
				return fmt.Errorf("database name %q must start with a letter", name)
			}
		default:
			return fmt.Errorf("database name %q contains unsupported character %q", name, r)
		}
	}
	return nil
}
