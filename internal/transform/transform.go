// Package transform turns source records into entity fragments by applying
// the declared field maps.
//
// The engine is pure: it never talks to the store. References come out as
// lookups by natural key, vocabulary values as idents, and multi-row groups
// as fragment trees with deterministic temp ids, all of which the store
// resolves when the carrying batch commits.
package transform

import (
	"fmt"

	"github.com/danjacka/mbrainz-importer/internal/catalog"
	"github.com/danjacka/mbrainz-importer/internal/entity"
	"github.com/danjacka/mbrainz-importer/internal/schema"
)

// Engine applies field maps to raw records.
type Engine struct {
	catalog *catalog.Catalog
}

// New builds an engine resolving vocabulary values through cat.
func New(cat *catalog.Catalog) *Engine {
	return &Engine{catalog: cat}
}

// RecordError reports a record that cannot be transformed.
type RecordError struct {
	Field  string
	Record entity.Raw
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("field %q of record %s: %v", e.Field, describeRecord(e.Record), e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func describeRecord(raw entity.Raw) string {
	for _, key := range []string{"gid", "release", "name"} {
		if v, ok := raw.String(key); ok && v != "" {
			return fmt.Sprintf("%s=%s", key, v)
		}
	}
	return fmt.Sprintf("%v", map[string]any(raw))
}

// Record maps one source record onto one fragment. Fields absent from the
// record, or present but empty, are skipped; record fields the map does not
// name are dropped. A record whose every mapped field is absent yields an
// empty fragment, which callers drop.
func (e *Engine) Record(raw entity.Raw, fields schema.FieldMap) (entity.Fragment, error) {
	fragment := make(entity.Fragment, len(fields))
	for _, spec := range fields {
		value, ok := raw[spec.Field]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && s == "" {
			continue
		}

		switch spec.Kind {
		case schema.MapSelfKey:
			fragment[spec.Attr] = value
		case schema.MapValue:
			mapped, err := e.mapValue(raw, spec)
			if err != nil {
				return nil, &RecordError{Field: spec.Field, Record: raw, Err: err}
			}
			fragment[spec.Attr] = mapped
		case schema.MapRef:
			fragment[spec.Attr] = entity.Lookup{Attr: spec.KeyAttr, Value: value}
		case schema.MapReverseRef:
			fragment[entity.ReverseAttr(spec.Attr)] = entity.Lookup{Attr: spec.KeyAttr, Value: value}
		default:
			return nil, &RecordError{Field: spec.Field, Record: raw, Err: fmt.Errorf("unknown map kind %d", spec.Kind)}
		}
	}
	return fragment, nil
}

func (e *Engine) mapValue(raw entity.Raw, spec schema.FieldSpec) (any, error) {
	attr, ok := schema.AttrByName(spec.Attr)
	if !ok {
		return nil, fmt.Errorf("undeclared attribute %s", spec.Attr)
	}

	switch attr.Type {
	case schema.TypeLong:
		n, ok := raw.Int(spec.Field)
		if !ok {
			return nil, fmt.Errorf("attribute %s needs an integer, got %T", spec.Attr, raw[spec.Field])
		}
		return n, nil
	case schema.TypeString:
		s, ok := raw.String(spec.Field)
		if !ok {
			return nil, fmt.Errorf("attribute %s needs a string, got %T", spec.Attr, raw[spec.Field])
		}
		return s, nil
	case schema.TypeRef:
		s, ok := raw.String(spec.Field)
		if !ok {
			return nil, fmt.Errorf("attribute %s needs a vocabulary value, got %T", spec.Attr, raw[spec.Field])
		}
		resolved, err := e.catalog.Resolve(spec.Attr, s)
		if err != nil {
			return nil, err
		}
		ident, ok := resolved.(entity.Ident)
		if !ok {
			return nil, fmt.Errorf("no vocabulary claims ref attribute %s", spec.Attr)
		}
		return ident, nil
	default:
		return nil, fmt.Errorf("attribute %s has unsupported type %q", spec.Attr, attr.Type)
	}
}
