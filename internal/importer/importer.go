// Package importer drives import runs. A run walks the entity types in
// dependency order and puts each through two phases: extract, which maps
// source record files into batch unit files, and load, which commits the
// units into the store. The first type that fails stops the run; a rerun
// picks up where the markers say the last one left off.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/danjacka/mbrainz-importer/internal/batch"
	"github.com/danjacka/mbrainz-importer/internal/catalog"
	"github.com/danjacka/mbrainz-importer/internal/config"
	"github.com/danjacka/mbrainz-importer/internal/logging"
	"github.com/danjacka/mbrainz-importer/internal/schema"
	"github.com/danjacka/mbrainz-importer/internal/store"
	"github.com/danjacka/mbrainz-importer/internal/transform"
)

// Importer coordinates extract and load runs over one configured store.
type Importer struct {
	cfg    *config.Config
	log    *slog.Logger
	client store.Client
	engine *transform.Engine
}

// New constructs an importer for the configured store backend.
func New(cfg *config.Config, logger *slog.Logger) (*Importer, error) {
	client, err := store.NewClient(cfg.Store)
	if err != nil {
		return nil, err
	}
	return &Importer{
		cfg:    cfg,
		log:    logging.NewComponentLogger(logger, "importer"),
		client: client,
		engine: transform.New(catalog.New(schema.Enums(), schema.SuperEnums())),
	}, nil
}

// TypeSummary reports one entity type's trip through the pipeline.
type TypeSummary struct {
	Type      string
	Records   int
	Fragments int
	Units     int
	Committed int
	Skipped   int
	Entities  int
	Asserted  int
	Duration  time.Duration
	Failures  []*store.Failure
}

// Failed reports whether the type recorded any load failures.
func (s *TypeSummary) Failed() bool { return len(s.Failures) > 0 }

// RunSummary aggregates a whole run. Types holds an entry for every type
// the run reached, including the one that failed.
type RunSummary struct {
	RunID    string
	Database string
	Created  bool
	Types    []TypeSummary
	Duration time.Duration
}

// Failed reports whether any type in the run recorded failures.
func (s *RunSummary) Failed() bool {
	for i := range s.Types {
		if s.Types[i].Failed() {
			return true
		}
	}
	return false
}

type phases struct {
	extract bool
	load    bool
}

// Run executes both phases for every configured type.
func (im *Importer) Run(ctx context.Context) (*RunSummary, error) {
	return im.run(ctx, phases{extract: true, load: true})
}

// Extract runs only the extract phase, leaving batch unit files behind
// for a later load.
func (im *Importer) Extract(ctx context.Context) (*RunSummary, error) {
	return im.run(ctx, phases{extract: true})
}

// Load runs only the load phase, reading batch unit files produced by an
// earlier extract.
func (im *Importer) Load(ctx context.Context) (*RunSummary, error) {
	return im.run(ctx, phases{load: true})
}

func (im *Importer) run(ctx context.Context, ph phases) (*RunSummary, error) {
	if err := im.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	unlock, err := im.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	names, err := im.typeOrder()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := im.log.With(logging.String(logging.FieldRunID, runID))
	start := time.Now()

	summary := &RunSummary{RunID: runID, Database: im.cfg.Store.Database}

	var conn store.Conn
	if ph.load {
		created, err := im.client.CreateDatabase(ctx, im.cfg.Store.Database)
		if err != nil {
			return nil, fmt.Errorf("create database %q: %w", im.cfg.Store.Database, err)
		}
		summary.Created = created
		log.Info("database ready",
			logging.String(logging.FieldDatabase, im.cfg.Store.Database),
			logging.Bool("created", created))

		conn, err = im.client.Connect(ctx, im.cfg.Store.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to %q: %w", im.cfg.Store.Database, err)
		}
		defer conn.Close()
	}

	log.Info("run started", logging.Int("types", len(names)))

	for _, name := range names {
		t, _ := schema.TypeByName(name)
		ts, err := im.runType(ctx, log, conn, t, ph)
		summary.Types = append(summary.Types, *ts)
		if err != nil {
			summary.Duration = time.Since(start)
			log.Error("run failed",
				logging.String(logging.FieldEntityType, name),
				logging.Error(err))
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	log.Info("run finished",
		logging.Int("types", len(summary.Types)),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

func (im *Importer) runType(ctx context.Context, log *slog.Logger, conn store.Conn, t schema.Type, ph phases) (*TypeSummary, error) {
	start := time.Now()
	ts := &TypeSummary{Type: t.Name}
	tlog := log.With(logging.String(logging.FieldEntityType, t.Name))

	if ph.extract {
		if err := im.extract(ctx, tlog, t, ts); err != nil {
			ts.Duration = time.Since(start)
			return ts, err
		}
	}
	if ph.load {
		if err := im.load(ctx, tlog, conn, t, ts); err != nil {
			ts.Duration = time.Since(start)
			return ts, err
		}
	}

	ts.Duration = time.Since(start)
	return ts, nil
}

// typeOrder resolves the configured type selection against the known
// types. A subset keeps the canonical dependency order regardless of how
// the configuration lists it.
func (im *Importer) typeOrder() ([]string, error) {
	requested := im.cfg.Import.EntityTypes
	if len(requested) == 0 {
		return schema.TypeNames(), nil
	}

	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		if _, ok := schema.TypeByName(name); !ok {
			return nil, fmt.Errorf("unknown entity type %q", name)
		}
		want[name] = true
	}

	ordered := make([]string, 0, len(want))
	for _, name := range schema.TypeNames() {
		if want[name] {
			ordered = append(ordered, name)
		}
	}
	return ordered, nil
}

// acquireLock takes the run lock under the base directory so concurrent
// runs cannot interleave writes to the same unit files and database.
func (im *Importer) acquireLock() (func(), error) {
	lock := flock.New(im.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another import run is already using %s", im.cfg.Paths.BaseDir)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			im.log.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

// Status reports committed batch units per entity type, counted from the
// store's batch markers.
type Status struct {
	Database string
	Types    []TypeStatus
}

// TypeStatus counts committed units for one entity type.
type TypeStatus struct {
	Type  string
	Units int
}

// Status connects to the configured database and tallies its markers.
// The database must already exist.
func (im *Importer) Status(ctx context.Context) (*Status, error) {
	conn, err := im.client.Connect(ctx, im.cfg.Store.Database)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	markers, err := conn.MarkerValues(ctx, schema.BatchIDAttr)
	if err != nil {
		return nil, fmt.Errorf("querying committed markers: %w", err)
	}

	counts := make(map[string]int)
	for marker := range markers {
		typeName, _, err := batch.ParseUnitID(marker)
		if err != nil {
			continue
		}
		counts[typeName]++
	}

	status := &Status{Database: im.cfg.Store.Database}
	for _, name := range schema.TypeNames() {
		status.Types = append(status.Types, TypeStatus{Type: name, Units: counts[name]})
		delete(counts, name)
	}

	// Markers from types this build no longer knows still count; list them
	// after the known types so older databases stay legible.
	extra := make([]string, 0, len(counts))
	for name := range counts {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		status.Types = append(status.Types, TypeStatus{Type: name, Units: counts[name]})
	}
	return status, nil
}
