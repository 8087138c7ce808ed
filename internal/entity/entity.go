// Package entity defines the fragment model shared by the transform, batch,
// and load stages.
//
// A fragment is a partial entity: attribute names mapped to the values a
// single source record asserts about it. Fragments carry deferred identity
// (lookups by unique attribute, transaction-scoped temp ids) so they can be
// built without talking to the store; the store resolves them when the batch
// that carries them commits.
package entity

import "strings"

// IDKey is the reserved fragment key holding a temporary identity.
const IDKey = "db/id"

// IdentAttr names the attribute that gives an entity a programmatic keyword
// identity, as enum and schema entities have.
const IdentAttr = "db/ident"

// Reserved attribute names of schema install fragments. A fragment carrying
// ValueTypeAttr declares an attribute rather than an ordinary entity.
const (
	ValueTypeAttr   = "db/valueType"
	CardinalityAttr = "db/cardinality"
	UniqueAttr      = "db/unique"
	DocAttr         = "db/doc"
)

// Ident references an entity by its keyword identity, e.g.
// "artist.type/person".
type Ident string

// TempID is a transaction-scoped identity. Fragments in one transaction that
// share a TempID are merged into a single entity when the transaction
// commits.
type TempID string

// Lookup identifies an existing entity by the value of a unique attribute.
type Lookup struct {
	Attr  string
	Value any
}

// Fragment is a partial entity. Keys are attribute names ("artist/gid");
// values are scalars, Ident, Lookup, child []Fragment, or a TempID under
// IDKey. A key in reverse form ("release/_media") asserts the forward
// attribute on the referenced entity, pointing back at this fragment.
type Fragment map[string]any

// TempID returns the fragment's temporary identity, if it carries one.
func (f Fragment) TempID() (TempID, bool) {
	id, ok := f[IDKey].(TempID)
	return id, ok
}

// Clone returns a shallow copy of the fragment.
func (f Fragment) Clone() Fragment {
	out := make(Fragment, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// IsReverse reports whether attr is written in reverse form: the name segment
// after the namespace begins with an underscore.
func IsReverse(attr string) bool {
	_, name, ok := splitAttr(attr)
	return ok && strings.HasPrefix(name, "_")
}

// ReverseAttr rewrites a forward attribute into its reverse form.
func ReverseAttr(attr string) string {
	ns, name, ok := splitAttr(attr)
	if !ok || strings.HasPrefix(name, "_") {
		return attr
	}
	return ns + "/_" + name
}

// ForwardAttr strips the reverse marker, returning the attribute the
// referenced entity owns. Forward attributes pass through unchanged.
func ForwardAttr(attr string) string {
	ns, name, ok := splitAttr(attr)
	if !ok || !strings.HasPrefix(name, "_") {
		return attr
	}
	return ns + "/" + strings.TrimPrefix(name, "_")
}

func splitAttr(attr string) (ns, name string, ok bool) {
	idx := strings.LastIndex(attr, "/")
	if idx <= 0 || idx == len(attr)-1 {
		return "", "", false
	}
	return attr[:idx], attr[idx+1:], true
}

// Raw is one source record as decoded from a record file: flat field names
// mapped to JSON values.
type Raw map[string]any

// String returns the named field as a string. Missing fields and non-string
// values report false.
func (r Raw) String(field string) (string, bool) {
	v, ok := r[field].(string)
	return v, ok
}

// Int returns the named field as an integer, accepting the numeric forms a
// JSON decoder produces.
func (r Raw) Int(field string) (int64, bool) {
	switch v := r[field].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		n := int64(v)
		if float64(n) == v {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}
