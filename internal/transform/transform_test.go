package transform_test

import (
	"errors"
	"testing"

	"github.com/danjacka/mbrainz-importer/internal/catalog"
	"github.com/danjacka/mbrainz-importer/internal/entity"
	"github.com/danjacka/mbrainz-importer/internal/schema"
	"github.com/danjacka/mbrainz-importer/internal/transform"
)

func newEngine() *transform.Engine {
	return transform.New(catalog.New(schema.Enums(), schema.SuperEnums()))
}

func fieldMap(t *testing.T, typeName string) schema.FieldMap {
	t.Helper()
	typ, ok := schema.TypeByName(typeName)
	if !ok {
		t.Fatalf("unknown type %q", typeName)
	}
	return typ.Fields
}

func TestRecordMapsArtist(t *testing.T) {
	engine := newEngine()
	raw := entity.Raw{
		"gid":            "5441c29d-3602-4898-b1a1-b77fa23b8e50",
		"name":           "David Bowie",
		"sortName":       "Bowie, David",
		"type":           "Person",
		"gender":         "Male",
		"country":        "GB",
		"disambiguation": "dropped silently",
	}

	fragment, err := engine.Record(raw, fieldMap(t, "artists"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	want := entity.Fragment{
		"artist/gid":      "5441c29d-3602-4898-b1a1-b77fa23b8e50",
		"artist/name":     "David Bowie",
		"artist/sortName": "Bowie, David",
		"artist/type":     entity.Ident("artist.type/person"),
		"artist/gender":   entity.Ident("artist.gender/male"),
		"artist/country":  entity.Ident("country/GB"),
	}
	if len(fragment) != len(want) {
		t.Fatalf("fragment = %#v, want %#v", fragment, want)
	}
	for attr, value := range want {
		if fragment[attr] != value {
			t.Fatalf("fragment[%s] = %#v, want %#v", attr, fragment[attr], value)
		}
	}
}

func TestRecordSkipsAbsentAndEmptyFields(t *testing.T) {
	engine := newEngine()
	raw := entity.Raw{
		"gid":    "8f468f36-8c7e-4fc1-9166-50664d267127",
		"name":   "Unknown Artist",
		"gender": "",
	}

	fragment, err := engine.Record(raw, fieldMap(t, "artists"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, ok := fragment["artist/gender"]; ok {
		t.Fatalf("empty gender should be skipped, fragment = %#v", fragment)
	}
	if _, ok := fragment["artist/type"]; ok {
		t.Fatalf("absent type should be skipped, fragment = %#v", fragment)
	}
	if len(fragment) != 2 {
		t.Fatalf("fragment = %#v", fragment)
	}
}

func TestRecordUnknownVocabularyValueFails(t *testing.T) {
	engine := newEngine()
	raw := entity.Raw{"gid": "x", "type": "Robot"}

	_, err := engine.Record(raw, fieldMap(t, "artists"))
	if err == nil {
		t.Fatal("expected error for unknown artist type")
	}
	var recordErr *transform.RecordError
	if !errors.As(err, &recordErr) {
		t.Fatalf("expected RecordError, got %T: %v", err, err)
	}
	var unknown *catalog.UnknownValueError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected wrapped UnknownValueError, got %v", err)
	}
	if unknown.Value != "Robot" {
		t.Fatalf("unexpected detail: %+v", unknown)
	}
}

func TestRecordBuildsLookupsForJoinRows(t *testing.T) {
	engine := newEngine()
	raw := entity.Raw{
		"release": "f205627f-b70a-409d-adbe-66289b614e80",
		"artist":  "5441c29d-3602-4898-b1a1-b77fa23b8e50",
	}

	fragment, err := engine.Record(raw, fieldMap(t, "release-artists"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if fragment["release/gid"] != "f205627f-b70a-409d-adbe-66289b614e80" {
		t.Fatalf("missing self key: %#v", fragment)
	}
	lookup, ok := fragment["release/artists"].(entity.Lookup)
	if !ok {
		t.Fatalf("release/artists should be a lookup: %#v", fragment["release/artists"])
	}
	if lookup.Attr != "artist/gid" || lookup.Value != "5441c29d-3602-4898-b1a1-b77fa23b8e50" {
		t.Fatalf("unexpected lookup: %+v", lookup)
	}
}

func TestRecordCoercesLongAttributes(t *testing.T) {
	engine := newEngine()
	raw := entity.Raw{
		"gid":  "95d0a3dc-f2d4-4f22-a6ac-4e316f614306",
		"name": "Dummy",
		// JSON decoding produces float64 for numbers.
		"year": float64(1994),
	}

	fragment, err := engine.Record(raw, fieldMap(t, "releases"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if fragment["release/year"] != int64(1994) {
		t.Fatalf("release/year = %#v, want int64(1994)", fragment["release/year"])
	}
}

func TestRecordIsDeterministic(t *testing.T) {
	engine := newEngine()
	raw := entity.Raw{"gid": "x", "name": "Portishead", "type": "Group", "country": "GB"}

	first, err := engine.Record(raw, fieldMap(t, "artists"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	for i := 0; i < 3; i++ {
		next, err := engine.Record(raw, fieldMap(t, "artists"))
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if len(next) != len(first) {
			t.Fatalf("iteration %d: %#v != %#v", i, next, first)
		}
		for attr, value := range first {
			if next[attr] != value {
				t.Fatalf("iteration %d: fragment[%s] = %#v, want %#v", i, attr, next[attr], value)
			}
		}
	}
}
