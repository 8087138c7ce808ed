package store

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/danjacka/mbrainz-importer/internal/entity"
)

// valueType is the storage type of an attribute's values.
type valueType string

const (
	vtypeString valueType = "string"
	vtypeLong   valueType = "long"
	vtypeRef    valueType = "ref"
)

// uniqueness of an attribute's values across entities.
type uniqueness string

const (
	uniqueNone     uniqueness = ""
	uniqueIdentity uniqueness = "identity"
	uniqueValue    uniqueness = "value"
)

// attrDef is an installed attribute as a transaction caches it.
type attrDef struct {
	name   string
	vtype  valueType
	many   bool
	unique uniqueness
}

func cardinalityOf(def attrDef) string {
	if def.many {
		return "many"
	}
	return "one"
}

// builtinAttrs exist in every database before any install fragment runs.
// db/ident gives schema and vocabulary entities their keyword identity.
var builtinAttrs = []attrDef{
	{name: entity.IdentAttr, vtype: vtypeString, unique: uniqueIdentity},
	{name: entity.DocAttr, vtype: vtypeString},
}

// txn is one open backend transaction. The transactor drives these
// primitives; the SQL and memory backends supply them. Reads observe the
// transaction's own writes.
type txn interface {
	attr(name string) (attrDef, bool)
	installAttr(ctx context.Context, def attrDef, doc string) error
	newEntity(ctx context.Context) (int64, error)
	uniqueGet(ctx context.Context, attr, value string) (int64, bool, error)
	uniquePut(ctx context.Context, attr, value string, e int64) error
	uniqueDel(ctx context.Context, attr, value string) error
	datomValues(ctx context.Context, e int64, attr string) ([]string, error)
	datomPut(ctx context.Context, e int64, attr, value string, vt valueType) (bool, error)
	datomDel(ctx context.Context, e int64, attr, value string) error
}

// transactor applies one transaction's fragments through txn primitives.
type transactor struct {
	tx     txn
	report *TxReport
	idents map[entity.Ident]int64
}

func runTransact(ctx context.Context, tx txn, fragments []entity.Fragment) (*TxReport, error) {
	t := &transactor{
		tx:     tx,
		report: &TxReport{TempIDs: make(map[entity.TempID]int64)},
		idents: make(map[entity.Ident]int64),
	}

	// Installs run first so fragments later in the same transaction can
	// use the attributes they declare.
	for _, fragment := range fragments {
		if isInstall(fragment) {
			if err := t.install(ctx, fragment); err != nil {
				return nil, err
			}
		}
	}
	for _, fragment := range fragments {
		if isInstall(fragment) {
			continue
		}
		if _, err := t.apply(ctx, fragment); err != nil {
			return nil, err
		}
	}
	return t.report, nil
}

// isInstall reports whether a fragment declares an attribute rather than an
// ordinary entity.
func isInstall(f entity.Fragment) bool {
	_, ok := f[entity.ValueTypeAttr]
	return ok
}

func (t *transactor) install(ctx context.Context, f entity.Fragment) error {
	ident, ok := f[entity.IdentAttr].(entity.Ident)
	if !ok {
		return dataErrorf("attribute install without %s", entity.IdentAttr)
	}
	def := attrDef{name: string(ident)}

	vt, ok := identSuffix(f[entity.ValueTypeAttr], "db.type/")
	if !ok {
		return dataErrorf("attribute %s: malformed value type %v", ident, f[entity.ValueTypeAttr])
	}
	switch valueType(vt) {
	case vtypeString, vtypeLong, vtypeRef:
		def.vtype = valueType(vt)
	default:
		return dataErrorf("attribute %s: unsupported value type %q", ident, vt)
	}

	card, ok := identSuffix(f[entity.CardinalityAttr], "db.cardinality/")
	if !ok {
		return dataErrorf("attribute %s: malformed cardinality %v", ident, f[entity.CardinalityAttr])
	}
	switch card {
	case "one":
	case "many":
		def.many = true
	default:
		return dataErrorf("attribute %s: unsupported cardinality %q", ident, card)
	}

	if raw, present := f[entity.UniqueAttr]; present {
		u, ok := identSuffix(raw, "db.unique/")
		if !ok {
			return dataErrorf("attribute %s: malformed uniqueness %v", ident, raw)
		}
		switch uniqueness(u) {
		case uniqueIdentity, uniqueValue:
			def.unique = uniqueness(u)
		default:
			return dataErrorf("attribute %s: unsupported uniqueness %q", ident, u)
		}
	}

	doc, _ := f[entity.DocAttr].(string)
	return t.tx.installAttr(ctx, def, doc)
}

func identSuffix(v any, prefix string) (string, bool) {
	ident, ok := v.(entity.Ident)
	if !ok || !strings.HasPrefix(string(ident), prefix) {
		return "", false
	}
	return strings.TrimPrefix(string(ident), prefix), true
}

// apply lands one entity fragment and returns the entity it resolved to.
// Child fragments recurse through here.
func (t *transactor) apply(ctx context.Context, f entity.Fragment) (int64, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		if k == entity.IDKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e, err := t.resolveEntity(ctx, f, keys)
	if err != nil {
		return 0, err
	}

	for _, key := range keys {
		if entity.IsReverse(key) {
			continue
		}
		def, ok := t.tx.attr(key)
		if !ok {
			return 0, dataErrorf("attribute %q not installed", key)
		}
		if err := t.assert(ctx, e, def, f[key]); err != nil {
			return 0, err
		}
	}

	// Reverse keys last: the forward datom points at this fragment's
	// entity, which now exists.
	for _, key := range keys {
		if !entity.IsReverse(key) {
			continue
		}
		if err := t.assertReverse(ctx, e, key, f[key]); err != nil {
			return 0, err
		}
	}
	return e, nil
}

// resolveEntity finds or creates the entity a fragment describes: an
// already-mapped temp id wins, then a hit on any unique identity attribute
// present in the fragment, then a fresh entity.
func (t *transactor) resolveEntity(ctx context.Context, f entity.Fragment, keys []string) (int64, error) {
	tempid, hasTemp := f.TempID()
	if hasTemp {
		if e, ok := t.report.TempIDs[tempid]; ok {
			return e, nil
		}
	}

	var e int64
	found := false
	for _, key := range keys {
		def, ok := t.tx.attr(key)
		if !ok || def.unique != uniqueIdentity {
			continue
		}
		value, scalar := identityValue(f[key])
		if !scalar {
			continue
		}
		hit, present, err := t.tx.uniqueGet(ctx, def.name, value)
		if err != nil {
			return 0, err
		}
		if !present {
			continue
		}
		if found && hit != e {
			return 0, conflictErrorf("identity attributes resolve to different entities (%d and %d)", e, hit)
		}
		e, found = hit, true
	}

	if !found {
		var err error
		e, err = t.tx.newEntity(ctx)
		if err != nil {
			return 0, err
		}
		t.report.Entities++
	}
	if hasTemp {
		t.report.TempIDs[tempid] = e
	}
	return e, nil
}

// identityValue canonicalizes a fragment value for identity lookup. Refs
// and nested values do not identify entities.
func identityValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case entity.Ident:
		return string(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	default:
		return "", false
	}
}

func (t *transactor) assert(ctx context.Context, e int64, def attrDef, value any) error {
	if children, ok := value.([]entity.Fragment); ok {
		if def.vtype != vtypeRef {
			return dataErrorf("attribute %q cannot hold child entities", def.name)
		}
		for _, child := range children {
			childE, err := t.apply(ctx, child)
			if err != nil {
				return err
			}
			if err := t.add(ctx, e, def, strconv.FormatInt(childE, 10)); err != nil {
				return err
			}
		}
		return nil
	}

	stored, err := t.storageValue(ctx, def, value)
	if err != nil {
		return err
	}
	return t.add(ctx, e, def, stored)
}

// storageValue canonicalizes one scalar for storage under def, resolving
// refs to entity ids.
func (t *transactor) storageValue(ctx context.Context, def attrDef, value any) (string, error) {
	switch def.vtype {
	case vtypeRef:
		switch v := value.(type) {
		case entity.Ident:
			e, err := t.resolveIdent(ctx, v)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(e, 10), nil
		case entity.Lookup:
			e, err := t.resolveLookup(ctx, v)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(e, 10), nil
		case entity.TempID:
			e, err := t.tempEntity(ctx, v)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(e, 10), nil
		default:
			return "", dataErrorf("attribute %q needs a ref value, got %T", def.name, value)
		}
	case vtypeLong:
		switch v := value.(type) {
		case int64:
			return strconv.FormatInt(v, 10), nil
		case int:
			return strconv.Itoa(v), nil
		default:
			return "", dataErrorf("attribute %q needs an integer value, got %T", def.name, value)
		}
	case vtypeString:
		switch v := value.(type) {
		case string:
			return v, nil
		case entity.Ident:
			return string(v), nil
		default:
			return "", dataErrorf("attribute %q needs a string value, got %T", def.name, value)
		}
	}
	return "", dataErrorf("attribute %q has unknown value type %q", def.name, def.vtype)
}

func (t *transactor) resolveIdent(ctx context.Context, ident entity.Ident) (int64, error) {
	if e, ok := t.idents[ident]; ok {
		return e, nil
	}
	e, ok, err := t.tx.uniqueGet(ctx, entity.IdentAttr, string(ident))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, dataErrorf("unknown ident %q", ident)
	}
	t.idents[ident] = e
	return e, nil
}

func (t *transactor) resolveLookup(ctx context.Context, l entity.Lookup) (int64, error) {
	def, ok := t.tx.attr(l.Attr)
	if !ok {
		return 0, dataErrorf("lookup on uninstalled attribute %q", l.Attr)
	}
	if def.unique == uniqueNone {
		return 0, dataErrorf("lookup on non-unique attribute %q", l.Attr)
	}
	value, scalar := identityValue(l.Value)
	if !scalar {
		return 0, dataErrorf("lookup on %q needs a scalar value, got %T", l.Attr, l.Value)
	}
	e, ok, err := t.tx.uniqueGet(ctx, def.name, value)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, dataErrorf("no entity with %s %v", l.Attr, l.Value)
	}
	return e, nil
}

func (t *transactor) tempEntity(ctx context.Context, id entity.TempID) (int64, error) {
	if e, ok := t.report.TempIDs[id]; ok {
		return e, nil
	}
	e, err := t.tx.newEntity(ctx)
	if err != nil {
		return 0, err
	}
	t.report.Entities++
	t.report.TempIDs[id] = e
	return e, nil
}

// assertReverse points the forward attribute of the referenced entity back
// at e.
func (t *transactor) assertReverse(ctx context.Context, e int64, key string, value any) error {
	forward := entity.ForwardAttr(key)
	def, ok := t.tx.attr(forward)
	if !ok {
		return dataErrorf("attribute %q not installed", forward)
	}
	if def.vtype != vtypeRef {
		return dataErrorf("reverse assertion on non-ref attribute %q", forward)
	}

	var parent int64
	var err error
	switch v := value.(type) {
	case entity.Lookup:
		parent, err = t.resolveLookup(ctx, v)
	case entity.Ident:
		parent, err = t.resolveIdent(ctx, v)
	case entity.TempID:
		parent, err = t.tempEntity(ctx, v)
	default:
		return dataErrorf("reverse reference %q needs a lookup, ident, or temp id, got %T", key, value)
	}
	if err != nil {
		return err
	}
	return t.add(ctx, parent, def, strconv.FormatInt(e, 10))
}

// add records one canonical value under def for e, honoring cardinality and
// uniqueness. Cardinality-one attributes replace their previous value;
// unique values already claimed by another entity are a conflict.
func (t *transactor) add(ctx context.Context, e int64, def attrDef, value string) error {
	if !def.many {
		existing, err := t.tx.datomValues(ctx, e, def.name)
		if err != nil {
			return err
		}
		for _, old := range existing {
			if old == value {
				return nil
			}
			if err := t.tx.datomDel(ctx, e, def.name, old); err != nil {
				return err
			}
			if def.unique != uniqueNone {
				if err := t.tx.uniqueDel(ctx, def.name, old); err != nil {
					return err
				}
			}
		}
	}

	if def.unique != uniqueNone {
		owner, ok, err := t.tx.uniqueGet(ctx, def.name, value)
		if err != nil {
			return err
		}
		if ok && owner != e {
			return conflictErrorf("%s %q already belongs to entity %d", def.name, value, owner)
		}
		if !ok {
			if err := t.tx.uniquePut(ctx, def.name, value, e); err != nil {
				return err
			}
		}
	}

	added, err := t.tx.datomPut(ctx, e, def.name, value, def.vtype)
	if err != nil {
		return err
	}
	if added {
		t.report.Asserted++
	}
	return nil
}
