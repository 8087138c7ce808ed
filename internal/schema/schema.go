// Package schema declares the music catalog schema: attribute definitions,
// enum and super-enum seed data, per-type field maps, and the dependency
// order of the importable entity types.
//
// Everything here is compile-time data. The transform engine reads the field
// maps, the catalog package indexes the vocabulary tables, and the bootstrap
// producers turn the declarations into fragments that install the schema
// through the same batch/load path every other type uses.
package schema

import "github.com/danjacka/mbrainz-importer/internal/entity"

// BatchIDAttr is the unique-value attribute marking committed batch units.
const BatchIDAttr = "mbrainz.import/batch-id"

// Attribute names used by schema install fragments.
const (
	AttrValueType   = entity.ValueTypeAttr
	AttrCardinality = entity.CardinalityAttr
	AttrUnique      = entity.UniqueAttr
	AttrDoc         = entity.DocAttr
)

// ValueType enumerates the primitive types attributes can store.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeLong   ValueType = "long"
	TypeRef    ValueType = "ref"
)

// Cardinality says whether an attribute holds one value or accumulates many.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// Uniqueness marks attributes whose values identify entities.
type Uniqueness string

const (
	UniqueNone     Uniqueness = ""
	UniqueIdentity Uniqueness = "identity"
	UniqueValue    Uniqueness = "value"
)

// Attr declares one schema attribute.
type Attr struct {
	Name   string
	Type   ValueType
	Card   Cardinality
	Unique Uniqueness
	Doc    string
}

// The marker attribute leads so it lands in the first bootstrap unit even
// when a small batch size splits the installs. Its own unit asserts the
// marker in the same transaction that installs it.
var attrs = []Attr{
	{Name: BatchIDAttr, Type: TypeString, Card: CardinalityOne, Unique: UniqueValue, Doc: "Marker asserted by every committed batch unit"},

	{Name: "artist/gid", Type: TypeString, Card: CardinalityOne, Unique: UniqueIdentity, Doc: "MusicBrainz artist identifier"},
	{Name: "artist/name", Type: TypeString, Card: CardinalityOne},
	{Name: "artist/sortName", Type: TypeString, Card: CardinalityOne},
	{Name: "artist/type", Type: TypeRef, Card: CardinalityOne},
	{Name: "artist/gender", Type: TypeRef, Card: CardinalityOne},
	{Name: "artist/country", Type: TypeRef, Card: CardinalityOne},

	{Name: "label/gid", Type: TypeString, Card: CardinalityOne, Unique: UniqueIdentity, Doc: "MusicBrainz label identifier"},
	{Name: "label/name", Type: TypeString, Card: CardinalityOne},
	{Name: "label/sortName", Type: TypeString, Card: CardinalityOne},
	{Name: "label/type", Type: TypeRef, Card: CardinalityOne},
	{Name: "label/country", Type: TypeRef, Card: CardinalityOne},

	{Name: "release/gid", Type: TypeString, Card: CardinalityOne, Unique: UniqueIdentity, Doc: "MusicBrainz release identifier"},
	{Name: "release/name", Type: TypeString, Card: CardinalityOne},
	{Name: "release/artists", Type: TypeRef, Card: CardinalityMany, Doc: "Credited artists"},
	{Name: "release/labels", Type: TypeRef, Card: CardinalityMany},
	{Name: "release/media", Type: TypeRef, Card: CardinalityMany, Doc: "Physical or digital media making up the release"},
	{Name: "release/status", Type: TypeRef, Card: CardinalityOne},
	{Name: "release/country", Type: TypeRef, Card: CardinalityOne},
	{Name: "release/language", Type: TypeRef, Card: CardinalityOne},
	{Name: "release/script", Type: TypeRef, Card: CardinalityOne},
	{Name: "release/barcode", Type: TypeString, Card: CardinalityOne},
	{Name: "release/year", Type: TypeLong, Card: CardinalityOne},

	{Name: "medium/position", Type: TypeLong, Card: CardinalityOne, Doc: "Position within the release, starting at 1"},
	{Name: "medium/format", Type: TypeRef, Card: CardinalityOne},
	{Name: "medium/trackCount", Type: TypeLong, Card: CardinalityOne},
	{Name: "medium/tracks", Type: TypeRef, Card: CardinalityMany},

	{Name: "track/position", Type: TypeLong, Card: CardinalityOne},
	{Name: "track/name", Type: TypeString, Card: CardinalityOne},
	{Name: "track/artists", Type: TypeRef, Card: CardinalityMany},
	{Name: "track/duration", Type: TypeLong, Card: CardinalityOne, Doc: "Track length in milliseconds"},

	{Name: "country/name", Type: TypeString, Card: CardinalityOne, Unique: UniqueValue},
	{Name: "language/name", Type: TypeString, Card: CardinalityOne, Unique: UniqueValue},
	{Name: "script/name", Type: TypeString, Card: CardinalityOne, Unique: UniqueValue},
}

var attrsByName map[string]*Attr

func init() {
	attrsByName = make(map[string]*Attr, len(attrs))
	for i := range attrs {
		attrsByName[attrs[i].Name] = &attrs[i]
	}
}

// Attrs returns every declared attribute.
func Attrs() []Attr {
	out := make([]Attr, len(attrs))
	copy(out, attrs)
	return out
}

// AttrByName returns the declaration for one attribute.
func AttrByName(name string) (Attr, bool) {
	a, ok := attrsByName[name]
	if !ok {
		return Attr{}, false
	}
	return *a, true
}

// BuiltinFragments returns the generated fragments for a builtin type.
func BuiltinFragments(name string) ([]entity.Fragment, bool) {
	switch name {
	case "schema":
		return BootstrapFragments(), true
	case "enums":
		return EnumFragments(), true
	case "superenums":
		return SuperEnumFragments(), true
	}
	return nil, false
}

// BootstrapFragments produces the schema install fragments, one per
// attribute.
func BootstrapFragments() []entity.Fragment {
	fragments := make([]entity.Fragment, 0, len(attrs))
	for _, a := range attrs {
		fragment := entity.Fragment{
			entity.IdentAttr: entity.Ident(a.Name),
			AttrValueType:    entity.Ident("db.type/" + string(a.Type)),
			AttrCardinality:  entity.Ident("db.cardinality/" + string(a.Card)),
		}
		if a.Unique != UniqueNone {
			fragment[AttrUnique] = entity.Ident("db.unique/" + string(a.Unique))
		}
		if a.Doc != "" {
			fragment[AttrDoc] = a.Doc
		}
		fragments = append(fragments, fragment)
	}
	return fragments
}
