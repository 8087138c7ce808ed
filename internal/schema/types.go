package schema

// MapKind selects the transform applied to one source field.
type MapKind int

const (
	// MapValue carries the field value onto the attribute, running string
	// values through the catalog resolver chain.
	MapValue MapKind = iota
	// MapSelfKey asserts the field value as the fragment's own unique
	// natural key, upserting into an existing entity when one matches.
	MapSelfKey
	// MapRef points the attribute at another entity, located by KeyAttr.
	MapRef
	// MapReverseRef points the referenced entity (located by KeyAttr) back
	// at this fragment through Attr.
	MapReverseRef
)

// FieldSpec describes how one source field maps onto an attribute.
type FieldSpec struct {
	Field   string
	Attr    string
	Kind    MapKind
	KeyAttr string
}

// FieldMap is an ordered list of field specs. Order fixes the iteration
// order of the transform, keeping fragment construction deterministic.
type FieldMap []FieldSpec

// CompositeSpec describes a multi-row type: consecutive records sharing
// GroupFields fold into one parent fragment carrying child fragments.
type CompositeSpec struct {
	// GroupFields identify the parent within the record stream.
	GroupFields []string
	// ParentIDPrefix and ParentIDFields feed the parent's synthetic temp id.
	ParentIDPrefix string
	ParentIDFields []string
	// Parent is mapped once per group, from the group's first record.
	Parent FieldMap
	// ChildAttr is the parent attribute holding the child fragments.
	ChildAttr string
	// Child is mapped once per record.
	Child FieldMap
	// ChildIDPrefix and ChildIDFields feed each child's synthetic temp id.
	// Records producing the same id merge into one child entity when the
	// unit commits.
	ChildIDPrefix string
	ChildIDFields []string
}

// Kind describes how a type's fragments are produced.
type Kind int

const (
	// KindBuiltin types generate fragments from schema declarations.
	KindBuiltin Kind = iota
	// KindEntity types map one source record to one fragment.
	KindEntity
	// KindComposite types fold multi-row groups into fragment trees.
	KindComposite
)

// Type is one importable entity type.
type Type struct {
	Name      string
	Kind      Kind
	Fields    FieldMap
	Composite *CompositeSpec
	// Sequential loads the type's units one at a time. The schema type
	// needs it: its first unit installs the marker attribute every later
	// unit asserts.
	Sequential bool
}

var types = []Type{
	{Name: "schema", Kind: KindBuiltin, Sequential: true},
	{Name: "enums", Kind: KindBuiltin},
	{Name: "superenums", Kind: KindBuiltin},
	{
		Name: "artists",
		Kind: KindEntity,
		Fields: FieldMap{
			{Field: "gid", Attr: "artist/gid", Kind: MapSelfKey},
			{Field: "name", Attr: "artist/name", Kind: MapValue},
			{Field: "sortName", Attr: "artist/sortName", Kind: MapValue},
			{Field: "type", Attr: "artist/type", Kind: MapValue},
			{Field: "gender", Attr: "artist/gender", Kind: MapValue},
			{Field: "country", Attr: "artist/country", Kind: MapValue},
		},
	},
	{
		Name: "labels",
		Kind: KindEntity,
		Fields: FieldMap{
			{Field: "gid", Attr: "label/gid", Kind: MapSelfKey},
			{Field: "name", Attr: "label/name", Kind: MapValue},
			{Field: "sortName", Attr: "label/sortName", Kind: MapValue},
			{Field: "type", Attr: "label/type", Kind: MapValue},
			{Field: "country", Attr: "label/country", Kind: MapValue},
		},
	},
	{
		Name: "releases",
		Kind: KindEntity,
		Fields: FieldMap{
			{Field: "gid", Attr: "release/gid", Kind: MapSelfKey},
			{Field: "name", Attr: "release/name", Kind: MapValue},
			{Field: "status", Attr: "release/status", Kind: MapValue},
			{Field: "country", Attr: "release/country", Kind: MapValue},
			{Field: "language", Attr: "release/language", Kind: MapValue},
			{Field: "script", Attr: "release/script", Kind: MapValue},
			{Field: "barcode", Attr: "release/barcode", Kind: MapValue},
			{Field: "year", Attr: "release/year", Kind: MapValue},
			{Field: "label", Attr: "release/labels", Kind: MapRef, KeyAttr: "label/gid"},
		},
	},
	{
		Name: "release-artists",
		Kind: KindEntity,
		Fields: FieldMap{
			{Field: "release", Attr: "release/gid", Kind: MapSelfKey},
			{Field: "artist", Attr: "release/artists", Kind: MapRef, KeyAttr: "artist/gid"},
		},
	},
	{
		Name: "media",
		Kind: KindComposite,
		Composite: &CompositeSpec{
			GroupFields:    []string{"release", "position"},
			ParentIDPrefix: "medium",
			ParentIDFields: []string{"release", "position"},
			Parent: FieldMap{
				{Field: "position", Attr: "medium/position", Kind: MapValue},
				{Field: "format", Attr: "medium/format", Kind: MapValue},
				{Field: "trackCount", Attr: "medium/trackCount", Kind: MapValue},
				{Field: "release", Attr: "release/media", Kind: MapReverseRef, KeyAttr: "release/gid"},
			},
			ChildAttr: "medium/tracks",
			Child: FieldMap{
				{Field: "track", Attr: "track/position", Kind: MapValue},
				{Field: "name", Attr: "track/name", Kind: MapValue},
				{Field: "duration", Attr: "track/duration", Kind: MapValue},
				{Field: "artist", Attr: "track/artists", Kind: MapRef, KeyAttr: "artist/gid"},
			},
			ChildIDPrefix: "track",
			ChildIDFields: []string{"release", "position", "track", "name"},
		},
	},
}

var typesByName map[string]*Type

func init() {
	typesByName = make(map[string]*Type, len(types))
	for i := range types {
		typesByName[types[i].Name] = &types[i]
	}
}

// Types returns every entity type in dependency order: schema first, then
// vocabularies, then primary entities, then referencing entities, with the
// composite media type last.
func Types() []Type {
	out := make([]Type, len(types))
	copy(out, types)
	return out
}

// TypeByName returns the named entity type.
func TypeByName(name string) (Type, bool) {
	t, ok := typesByName[name]
	if !ok {
		return Type{}, false
	}
	return *t, true
}

// TypeNames returns the names of every entity type in dependency order.
func TypeNames() []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return names
}
