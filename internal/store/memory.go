package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/danjacka/mbrainz-importer/internal/entity"
)

// NewMemory returns a client keeping every database in process memory.
// Tests and dry runs use it in place of a real backend; semantics match the
// SQL implementation because both drive the same transactor.
func NewMemory() Client {
	return &memClient{dbs: make(map[string]*memDB)}
}

type memClient struct {
	mu  sync.Mutex
	dbs map[string]*memDB
}

func (c *memClient) CreateDatabase(_ context.Context, name string) (bool, error) {
	if err := validDatabaseName(name); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dbs[name]; ok {
		return false, nil
	}
	c.dbs[name] = newMemDB()
	return true, nil
}

func (c *memClient) Connect(_ context.Context, name string) (Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.dbs[name]
	if !ok {
		return nil, fmt.Errorf("database %q does not exist, create it first", name)
	}
	return &memConn{db: db}, nil
}

type uniqueKey struct {
	a, v string
}

type eaKey struct {
	e int64
	a string
}

type memDatom struct {
	v  string
	vt valueType
}

type memAttr struct {
	def attrDef
	doc string
}

// memDB holds one database. Its mutex spans whole transactions, so writers
// serialize the way a single-writer SQLite file does.
type memDB struct {
	mu      sync.Mutex
	attrs   map[string]memAttr
	nextE   int64
	datoms  map[eaKey][]memDatom
	uniques map[uniqueKey]int64
}

func newMemDB() *memDB {
	db := &memDB{
		attrs:   make(map[string]memAttr),
		datoms:  make(map[eaKey][]memDatom),
		uniques: make(map[uniqueKey]int64),
	}
	for _, def := range builtinAttrs {
		db.attrs[def.name] = memAttr{def: def}
	}
	return db
}

type memConn struct {
	db *memDB
}

func (c *memConn) Transact(ctx context.Context, fragments []entity.Fragment) (*TxReport, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	tx := &memTxn{db: c.db}
	report, err := runTransact(ctx, tx, fragments)
	if err != nil {
		tx.rollback()
		return nil, err
	}
	return report, nil
}

func (c *memConn) MarkerValues(_ context.Context, attr string) (map[string]struct{}, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	values := make(map[string]struct{})
	for key := range c.db.uniques {
		if key.a == attr {
			values[key.v] = struct{}{}
		}
	}
	return values, nil
}

func (c *memConn) Close() error { return nil }

// memTxn mutates the database in place and journals compensating undo ops.
// Rollback replays the journal in reverse.
type memTxn struct {
	db   *memDB
	undo []func()
}

func (t *memTxn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTxn) attr(name string) (attrDef, bool) {
	a, ok := t.db.attrs[name]
	return a.def, ok
}

func (t *memTxn) installAttr(_ context.Context, def attrDef, doc string) error {
	prev, had := t.db.attrs[def.name]
	t.db.attrs[def.name] = memAttr{def: def, doc: doc}
	t.undo = append(t.undo, func() {
		if had {
			t.db.attrs[def.name] = prev
		} else {
			delete(t.db.attrs, def.name)
		}
	})
	return nil
}

func (t *memTxn) newEntity(_ context.Context) (int64, error) {
	t.db.nextE++
	e := t.db.nextE
	t.undo = append(t.undo, func() { t.db.nextE-- })
	return e, nil
}

func (t *memTxn) uniqueGet(_ context.Context, attr, value string) (int64, bool, error) {
	e, ok := t.db.uniques[uniqueKey{attr, value}]
	return e, ok, nil
}

func (t *memTxn) uniquePut(_ context.Context, attr, value string, e int64) error {
	key := uniqueKey{attr, value}
	if owner, ok := t.db.uniques[key]; ok {
		if owner != e {
			return conflictErrorf("%s %q already belongs to entity %d", attr, value, owner)
		}
		return nil
	}
	t.db.uniques[key] = e
	t.undo = append(t.undo, func() { delete(t.db.uniques, key) })
	return nil
}

func (t *memTxn) uniqueDel(_ context.Context, attr, value string) error {
	key := uniqueKey{attr, value}
	if prev, ok := t.db.uniques[key]; ok {
		delete(t.db.uniques, key)
		t.undo = append(t.undo, func() { t.db.uniques[key] = prev })
	}
	return nil
}

func (t *memTxn) datomValues(_ context.Context, e int64, attr string) ([]string, error) {
	stored := t.db.datoms[eaKey{e, attr}]
	values := make([]string, 0, len(stored))
	for _, d := range stored {
		values = append(values, d.v)
	}
	sort.Strings(values)
	return values, nil
}

func (t *memTxn) datomPut(_ context.Context, e int64, attr, value string, vt valueType) (bool, error) {
	key := eaKey{e, attr}
	for _, d := range t.db.datoms[key] {
		if d.v == value {
			return false, nil
		}
	}
	t.db.datoms[key] = append(t.db.datoms[key], memDatom{v: value, vt: vt})
	t.undo = append(t.undo, func() {
		stored := t.db.datoms[key]
		t.db.datoms[key] = stored[:len(stored)-1]
	})
	return true, nil
}

func (t *memTxn) datomDel(_ context.Context, e int64, attr, value string) error {
	key := eaKey{e, attr}
	old := t.db.datoms[key]
	kept := make([]memDatom, 0, len(old))
	for _, d := range old {
		if d.v != value {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(old) {
		return nil
	}
	t.db.datoms[key] = kept
	t.undo = append(t.undo, func() { t.db.datoms[key] = old })
	return nil
}
