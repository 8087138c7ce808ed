package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/danjacka/mbrainz-importer/internal/entity"
)

const (
	seedAttrSQL = `INSERT INTO attrs (name, value_type, cardinality, uniqueness, doc)
		VALUES (?, ?, ?, ?, '')
		ON CONFLICT (name) DO NOTHING`

	upsertAttrSQL = `INSERT INTO attrs (name, value_type, cardinality, uniqueness, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			value_type = excluded.value_type,
			cardinality = excluded.cardinality,
			uniqueness = excluded.uniqueness,
			doc = excluded.doc`
)

// sqlConn is one open SQL database.
type sqlConn struct {
	db *sql.DB
	d  dialect
}

func openSQL(ctx context.Context, d dialect, dsn string) (*sqlConn, error) {
	db, err := sql.Open(d.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name(), err)
	}
	d.tunePool(db)
	for _, stmt := range d.setup() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	conn := &sqlConn{db: db, d: d}
	if err := conn.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return conn, nil
}

func (c *sqlConn) migrate(ctx context.Context) error {
	for _, stmt := range c.d.migrations() {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", c.d.name(), err)
		}
	}
	for _, def := range builtinAttrs {
		_, err := c.db.ExecContext(ctx, c.d.rebind(seedAttrSQL),
			def.name, string(def.vtype), cardinalityOf(def), string(def.unique))
		if err != nil {
			return fmt.Errorf("seed attribute %s: %w", def.name, err)
		}
	}
	return nil
}

func (c *sqlConn) Transact(ctx context.Context, fragments []entity.Fragment) (*TxReport, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", mapDriverErr(err))
	}

	st := &sqlTxn{tx: tx, d: c.d}
	if err := st.loadAttrs(ctx); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	report, err := runTransact(ctx, st, fragments)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", mapDriverErr(err))
	}
	return report, nil
}

func (c *sqlConn) MarkerValues(ctx context.Context, attr string) (map[string]struct{}, error) {
	rows, err := c.db.QueryContext(ctx, c.d.rebind(`SELECT v FROM uniques WHERE a = ?`), attr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]struct{})
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values[v] = struct{}{}
	}
	return values, rows.Err()
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

// mapDriverErr lifts backend constraint violations into the package
// sentinel so classification never parses driver text upstream.
func mapDriverErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// sqlTxn adapts one *sql.Tx to the transactor's primitives.
type sqlTxn struct {
	tx    *sql.Tx
	d     dialect
	attrs map[string]attrDef
}

func (t *sqlTxn) loadAttrs(ctx context.Context) error {
	rows, err := t.tx.QueryContext(ctx, `SELECT name, value_type, cardinality, uniqueness FROM attrs`)
	if err != nil {
		return fmt.Errorf("load attributes: %w", err)
	}
	defer rows.Close()

	t.attrs = make(map[string]attrDef)
	for rows.Next() {
		var name, vt, card, uniq string
		if err := rows.Scan(&name, &vt, &card, &uniq); err != nil {
			return err
		}
		t.attrs[name] = attrDef{
			name:   name,
			vtype:  valueType(vt),
			many:   card == "many",
			unique: uniqueness(uniq),
		}
	}
	return rows.Err()
}

func (t *sqlTxn) attr(name string) (attrDef, bool) {
	def, ok := t.attrs[name]
	return def, ok
}

func (t *sqlTxn) installAttr(ctx context.Context, def attrDef, doc string) error {
	_, err := t.exec(ctx, upsertAttrSQL,
		def.name, string(def.vtype), cardinalityOf(def), string(def.unique), doc)
	if err != nil {
		return fmt.Errorf("install attribute %s: %w", def.name, err)
	}
	t.attrs[def.name] = def
	return nil
}

func (t *sqlTxn) newEntity(ctx context.Context) (int64, error) {
	return t.d.newEntity(ctx, t.tx)
}

func (t *sqlTxn) uniqueGet(ctx context.Context, attr, value string) (int64, bool, error) {
	var e int64
	err := t.tx.QueryRowContext(ctx,
		t.d.rebind(`SELECT e FROM uniques WHERE a = ? AND v = ?`), attr, value).Scan(&e)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return e, true, nil
}

func (t *sqlTxn) uniquePut(ctx context.Context, attr, value string, e int64) error {
	_, err := t.exec(ctx, `INSERT INTO uniques (a, v, e) VALUES (?, ?, ?)`, attr, value, e)
	return mapDriverErr(err)
}

func (t *sqlTxn) uniqueDel(ctx context.Context, attr, value string) error {
	_, err := t.exec(ctx, `DELETE FROM uniques WHERE a = ? AND v = ?`, attr, value)
	return err
}

func (t *sqlTxn) datomValues(ctx context.Context, e int64, attr string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		t.d.rebind(`SELECT v FROM datoms WHERE e = ? AND a = ? ORDER BY v`), e, attr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (t *sqlTxn) datomPut(ctx context.Context, e int64, attr, value string, vt valueType) (bool, error) {
	res, err := t.exec(ctx,
		`INSERT INTO datoms (e, a, v, vtype) VALUES (?, ?, ?, ?) ON CONFLICT (e, a, v) DO NOTHING`,
		e, attr, value, string(vt))
	if err != nil {
		return false, mapDriverErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *sqlTxn) datomDel(ctx context.Context, e int64, attr, value string) error {
	_, err := t.exec(ctx, `DELETE FROM datoms WHERE e = ? AND a = ? AND v = ?`, e, attr, value)
	return err
}

func (t *sqlTxn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.d.rebind(query), args...)
}
