package transform_test

import (
	"testing"

	"github.com/danjacka/mbrainz-importer/internal/entity"
	"github.com/danjacka/mbrainz-importer/internal/schema"
	"github.com/danjacka/mbrainz-importer/internal/transform"
)

func newMediaFold(t *testing.T) *transform.Composite {
	t.Helper()
	typ, ok := schema.TypeByName("media")
	if !ok || typ.Composite == nil {
		t.Fatal("media composite spec missing")
	}
	return transform.NewComposite(newEngine(), typ.Composite)
}

func mediaRecord(release string, position int, track int, name, artist string) entity.Raw {
	return entity.Raw{
		"release":  release,
		"position": float64(position),
		"format":   "CD",
		"track":    float64(track),
		"name":     name,
		"artist":   artist,
		"duration": float64(180000),
	}
}

func TestCompositeFoldsGroupsAndClosesOnKeyChange(t *testing.T) {
	fold := newMediaFold(t)

	records := []entity.Raw{
		mediaRecord("R1", 1, 1, "Mysterons", "A1"),
		mediaRecord("R1", 1, 2, "Sour Times", "A1"),
		mediaRecord("R2", 1, 1, "Intro", "A2"),
	}

	completed, err := fold.Add(records[0])
	if err != nil || completed != nil {
		t.Fatalf("Add(first) = %v, %v", completed, err)
	}
	completed, err = fold.Add(records[1])
	if err != nil || completed != nil {
		t.Fatalf("Add(same group) = %v, %v", completed, err)
	}

	completed, err = fold.Add(records[2])
	if err != nil {
		t.Fatalf("Add(new group): %v", err)
	}
	if completed == nil {
		t.Fatal("expected key change to close the first group")
	}

	if completed["medium/position"] != int64(1) {
		t.Fatalf("medium/position = %#v", completed["medium/position"])
	}
	if completed["medium/format"] != entity.Ident("medium.format/cd") {
		t.Fatalf("medium/format = %#v", completed["medium/format"])
	}
	reverse, ok := completed["release/_media"].(entity.Lookup)
	if !ok || reverse.Attr != "release/gid" || reverse.Value != "R1" {
		t.Fatalf("release/_media = %#v", completed["release/_media"])
	}
	if _, ok := completed.TempID(); !ok {
		t.Fatal("parent fragment missing temp id")
	}

	tracks, ok := completed["medium/tracks"].([]entity.Fragment)
	if !ok || len(tracks) != 2 {
		t.Fatalf("medium/tracks = %#v", completed["medium/tracks"])
	}
	if tracks[0]["track/name"] != "Mysterons" || tracks[1]["track/name"] != "Sour Times" {
		t.Fatalf("track order lost: %#v", tracks)
	}

	final := fold.Flush()
	if final == nil {
		t.Fatal("expected Flush to return the open group")
	}
	finalTracks := final["medium/tracks"].([]entity.Fragment)
	if len(finalTracks) != 1 || finalTracks[0]["track/name"] != "Intro" {
		t.Fatalf("unexpected final group: %#v", final)
	}
	if again := fold.Flush(); again != nil {
		t.Fatalf("second Flush should be nil, got %#v", again)
	}
}

func TestCompositeMultiCreditRowsShareChildID(t *testing.T) {
	fold := newMediaFold(t)

	// Two rows for the same track with different artist credits, then a
	// third row for a different track.
	if _, err := fold.Add(mediaRecord("R1", 1, 2, "Sour Times", "A1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := fold.Add(mediaRecord("R1", 1, 2, "Sour Times", "A2")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := fold.Add(mediaRecord("R1", 1, 3, "Strangers", "A1")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	parent := fold.Flush()
	if parent == nil {
		t.Fatal("expected open group")
	}
	tracks := parent["medium/tracks"].([]entity.Fragment)
	if len(tracks) != 3 {
		t.Fatalf("expected 3 child fragments, got %d", len(tracks))
	}

	first, _ := tracks[0].TempID()
	second, _ := tracks[1].TempID()
	third, _ := tracks[2].TempID()
	if first == "" || second == "" || third == "" {
		t.Fatalf("missing temp ids: %#v", tracks)
	}
	if first != second {
		t.Fatalf("multi-credit rows should share a temp id: %q vs %q", first, second)
	}
	if first == third {
		t.Fatalf("distinct tracks should not share a temp id: %q", first)
	}

	firstArtist := tracks[0]["track/artists"].(entity.Lookup)
	secondArtist := tracks[1]["track/artists"].(entity.Lookup)
	if firstArtist.Value == secondArtist.Value {
		t.Fatal("expected differing artist credits on merged rows")
	}
}

func TestSyntheticIDNormalizesUnicode(t *testing.T) {
	composed := entity.Raw{"release": "R1", "position": float64(1), "track": float64(1), "name": "Café"}
	decomposed := entity.Raw{"release": "R1", "position": float64(1), "track": float64(1), "name": "Café "}

	fields := []string{"release", "position", "track", "name"}
	a, err := transform.SyntheticID("track", composed, fields)
	if err != nil {
		t.Fatalf("SyntheticID: %v", err)
	}
	b, err := transform.SyntheticID("track", decomposed, fields)
	if err != nil {
		t.Fatalf("SyntheticID: %v", err)
	}
	if a != b {
		t.Fatalf("normalized forms should match: %q vs %q", a, b)
	}

	other := entity.Raw{"release": "R1", "position": float64(1), "track": float64(1), "name": "Cafe"}
	c, err := transform.SyntheticID("track", other, fields)
	if err != nil {
		t.Fatalf("SyntheticID: %v", err)
	}
	if a == c {
		t.Fatalf("distinct names should not collide: %q", a)
	}
}

func TestSyntheticIDFieldBoundaries(t *testing.T) {
	left := entity.Raw{"a": "ab", "b": "c"}
	right := entity.Raw{"a": "a", "b": "bc"}

	x, err := transform.SyntheticID("t", left, []string{"a", "b"})
	if err != nil {
		t.Fatalf("SyntheticID: %v", err)
	}
	y, err := transform.SyntheticID("t", right, []string{"a", "b"})
	if err != nil {
		t.Fatalf("SyntheticID: %v", err)
	}
	if x == y {
		t.Fatal("field boundaries must contribute to the hash")
	}
}
