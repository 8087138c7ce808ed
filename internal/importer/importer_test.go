package importer_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/danjacka/mbrainz-importer/internal/config"
	"github.com/danjacka/mbrainz-importer/internal/importer"
	"github.com/danjacka/mbrainz-importer/internal/logging"
	"github.com/danjacka/mbrainz-importer/internal/schema"
	"github.com/danjacka/mbrainz-importer/internal/store"
	"github.com/danjacka/mbrainz-importer/internal/testsupport"
)

const (
	bowieGID   = "5441c29d-3602-4898-b1a1-b77fa23b8e50"
	beatlesGID = "b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d"
	rcaGID     = "8c1b1a53-8c97-4a4e-9e0f-2c3f9e0b7a42"
	lowGID     = "16b58f83-cbc4-4a86-a811-682aef043500"
)

func newImporter(t *testing.T, cfg *config.Config) *importer.Importer {
	t.Helper()
	im, err := importer.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("importer.New: %v", err)
	}
	return im
}

// writeMusicFixtures lays down a small but complete source data set: two
// artists, one label, one release with credits, and one two-medium track
// listing.
func writeMusicFixtures(t *testing.T, cfg *config.Config) {
	t.Helper()

	testsupport.WriteRecords(t, cfg, "artists",
		map[string]any{
			"gid": bowieGID, "name": "David Bowie", "sortName": "Bowie, David",
			"type": "Person", "gender": "Male", "country": "GB",
		},
		map[string]any{
			"gid": beatlesGID, "name": "The Beatles", "sortName": "Beatles, The",
			"type": "Group", "country": "GB",
		},
	)
	testsupport.WriteRecords(t, cfg, "labels",
		map[string]any{
			"gid": rcaGID, "name": "RCA Victor", "sortName": "RCA Victor",
			"type": "Original Production", "country": "US",
		},
	)
	testsupport.WriteRecords(t, cfg, "releases",
		map[string]any{
			"gid": lowGID, "name": "Low", "status": "Official", "country": "GB",
			"language": "eng", "script": "Latn", "barcode": "078635852219",
			"year": 1977, "label": rcaGID,
		},
	)
	testsupport.WriteRecords(t, cfg, "release-artists",
		map[string]any{"release": lowGID, "artist": bowieGID},
	)
	testsupport.WriteRecords(t, cfg, "media",
		map[string]any{
			"release": lowGID, "position": 1, "format": "Vinyl", "trackCount": 2,
			"track": 1, "name": "Speed of Life", "duration": 166000, "artist": bowieGID,
		},
		map[string]any{
			"release": lowGID, "position": 1, "format": "Vinyl", "trackCount": 2,
			"track": 2, "name": "Breaking Glass", "duration": 114000, "artist": bowieGID,
		},
		map[string]any{
			"release": lowGID, "position": 2, "format": "Vinyl", "trackCount": 1,
			"track": 1, "name": "Warszawa", "duration": 383000, "artist": bowieGID,
		},
	)
}

func summaryByType(s *importer.RunSummary) map[string]importer.TypeSummary {
	out := make(map[string]importer.TypeSummary, len(s.Types))
	for _, ts := range s.Types {
		out[ts.Type] = ts
	}
	return out
}

func TestRunImportsEverythingThenRerunSkips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeMusicFixtures(t, cfg)
	im := newImporter(t, cfg)

	summary, err := im.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed() {
		t.Fatalf("run recorded failures: %+v", summary.Types)
	}
	if !summary.Created {
		t.Fatal("first run should create the database")
	}
	if len(summary.Types) != 8 {
		t.Fatalf("types = %d, want 8", len(summary.Types))
	}

	byType := summaryByType(summary)

	artists := byType["artists"]
	if artists.Records != 2 || artists.Units != 1 || artists.Committed != 1 {
		t.Fatalf("artists = %+v", artists)
	}
	// Two new artist entities plus the unit marker. The vocabulary refs
	// resolve to entities seeded by earlier types.
	if artists.Entities != 3 {
		t.Fatalf("artists.Entities = %d, want 3", artists.Entities)
	}

	releases := byType["releases"]
	if releases.Committed != 1 || releases.Entities != 2 {
		t.Fatalf("releases = %+v", releases)
	}

	// The credit rows upsert into the release created by the releases
	// type, so the only new entity is the marker.
	credits := byType["release-artists"]
	if credits.Committed != 1 || credits.Entities != 1 {
		t.Fatalf("release-artists = %+v", credits)
	}

	// Three track rows fold into two media. New entities: two media,
	// three tracks, one marker.
	media := byType["media"]
	if media.Records != 3 || media.Fragments != 2 || media.Committed != 1 {
		t.Fatalf("media = %+v", media)
	}
	if media.Entities != 6 {
		t.Fatalf("media.Entities = %d, want 6", media.Entities)
	}

	rerun, err := im.Run(context.Background())
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if rerun.Created {
		t.Fatal("rerun should find the database in place")
	}
	for _, ts := range rerun.Types {
		first := byType[ts.Type]
		if ts.Committed != 0 {
			t.Fatalf("rerun committed %d %s units", ts.Committed, ts.Type)
		}
		if ts.Skipped != first.Committed {
			t.Fatalf("rerun skipped %d %s units, want %d", ts.Skipped, ts.Type, first.Committed)
		}
		if ts.Entities != 0 {
			t.Fatalf("rerun created %d entities for %s", ts.Entities, ts.Type)
		}
	}
}

func TestRunStopsAtFirstFailedType(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEntityTypes(
		"schema", "enums", "superenums", "artists", "releases", "release-artists"))
	writeMusicFixtures(t, cfg)
	im := newImporter(t, cfg)

	// The label the release references is never imported, so the releases
	// unit fails with a data failure and the run stops there.
	summary, err := im.Run(context.Background())
	if err == nil {
		t.Fatal("expected run error")
	}
	if !summary.Failed() {
		t.Fatal("summary should record the failure")
	}
	if got := summary.Types[len(summary.Types)-1].Type; got != "releases" {
		t.Fatalf("run stopped at %q, want releases", got)
	}
	for _, ts := range summary.Types {
		if ts.Type == "release-artists" {
			t.Fatal("release-artists should not run after releases failed")
		}
	}

	releases := summaryByType(summary)["releases"]
	if len(releases.Failures) != 1 {
		t.Fatalf("failures = %+v", releases.Failures)
	}
	failure := releases.Failures[0]
	if failure.Category != store.CategoryData {
		t.Fatalf("category = %q, want %q", failure.Category, store.CategoryData)
	}
	if failure.BatchID != "releases-0" {
		t.Fatalf("batch id = %q", failure.BatchID)
	}
	if artists := summaryByType(summary)["artists"]; artists.Committed != 1 {
		t.Fatalf("artists should commit before the failure, got %+v", artists)
	}
}

func TestFailedRunResumesAfterFix(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEntityTypes(
		"schema", "enums", "superenums", "artists", "releases"))
	writeMusicFixtures(t, cfg)
	im := newImporter(t, cfg)

	if _, err := im.Run(context.Background()); err == nil {
		t.Fatal("expected run error while the label is missing")
	}

	// Importing the label first satisfies the reference; the rerun skips
	// everything already committed and retries only the failed unit.
	cfg.Import.EntityTypes = []string{
		"schema", "enums", "superenums", "artists", "labels", "releases"}
	summary, err := im.Run(context.Background())
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if summary.Failed() {
		t.Fatalf("rerun recorded failures: %+v", summary.Types)
	}

	byType := summaryByType(summary)
	if artists := byType["artists"]; artists.Committed != 0 || artists.Skipped != 1 {
		t.Fatalf("artists = %+v", artists)
	}
	if labels := byType["labels"]; labels.Committed != 1 {
		t.Fatalf("labels = %+v", labels)
	}
	if releases := byType["releases"]; releases.Committed != 1 || releases.Entities != 2 {
		t.Fatalf("releases = %+v", releases)
	}
}

func TestExtractThenLoad(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEntityTypes(
		"schema", "enums", "superenums", "artists"))
	writeMusicFixtures(t, cfg)
	im := newImporter(t, cfg)

	extracted, err := im.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, name := range []string{"schema", "enums", "superenums", "artists"} {
		path := filepath.Join(cfg.BatchesDir(), name+".jsonl")
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("unit file for %s: %v", name, err)
		}
	}
	artists := summaryByType(extracted)["artists"]
	if artists.Units != 1 || artists.Committed != 0 {
		t.Fatalf("extract-only artists = %+v", artists)
	}

	loaded, err := im.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	artists = summaryByType(loaded)["artists"]
	if artists.Committed != 1 || artists.Units != 1 {
		t.Fatalf("load-only artists = %+v", artists)
	}
	if artists.Records != 0 {
		t.Fatalf("load-only run read %d records", artists.Records)
	}
}

func TestLoadWithoutExtractFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEntityTypes("schema"))
	im := newImporter(t, cfg)

	_, err := im.Load(context.Background())
	if err == nil {
		t.Fatal("expected error without unit files")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want missing file", err)
	}
}

func TestRunLockExcludesConcurrentRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEntityTypes("schema"))
	im := newImporter(t, cfg)

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	if _, err := im.Run(context.Background()); err == nil {
		t.Fatal("expected run to refuse while locked")
	} else if !strings.Contains(err.Error(), "already") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunRejectsUnknownType(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEntityTypes("artist"))
	im := newImporter(t, cfg)

	if _, err := im.Run(context.Background()); err == nil {
		t.Fatal("expected unknown type error")
	} else if !strings.Contains(err.Error(), "unknown entity type") {
		t.Fatalf("err = %v", err)
	}
}

func TestTypeSubsetKeepsDependencyOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEntityTypes(
		"artists", "schema", "superenums", "enums"))
	writeMusicFixtures(t, cfg)
	im := newImporter(t, cfg)

	summary, err := im.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	var order []string
	for _, ts := range summary.Types {
		order = append(order, ts.Type)
	}
	want := []string{"schema", "enums", "superenums", "artists"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestStatusCountsCommittedUnits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeMusicFixtures(t, cfg)
	im := newImporter(t, cfg)

	summary, err := im.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	status, err := im.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	byType := summaryByType(summary)
	for _, ts := range status.Types {
		if ts.Units != byType[ts.Type].Committed {
			t.Fatalf("status %s = %d units, want %d", ts.Type, ts.Units, byType[ts.Type].Committed)
		}
	}
}

func TestStatusRequiresDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	im := newImporter(t, cfg)

	if _, err := im.Status(context.Background()); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestRunOnSQLiteStorePersistsAcrossInstances(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSQLiteStore(),
		testsupport.WithEntityTypes("schema", "enums", "superenums", "artists"))
	writeMusicFixtures(t, cfg)

	if _, err := newImporter(t, cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// A fresh importer opens the same database file, so the markers keep
	// the rerun idempotent across process boundaries.
	rerun, err := newImporter(t, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if rerun.Created {
		t.Fatal("rerun should reuse the database file")
	}
	artists := summaryByType(rerun)["artists"]
	if artists.Committed != 0 || artists.Skipped != 1 {
		t.Fatalf("artists = %+v", artists)
	}

	conn := testsupport.MustConnect(t, cfg)
	markers, err := conn.MarkerValues(context.Background(), schema.BatchIDAttr)
	if err != nil {
		t.Fatalf("MarkerValues: %v", err)
	}
	if _, ok := markers["artists-0"]; !ok {
		t.Fatalf("artists-0 marker missing from store file: %v", markers)
	}
}
