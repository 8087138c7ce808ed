package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/danjacka/mbrainz-importer/internal/batch"
	"github.com/danjacka/mbrainz-importer/internal/loader"
	"github.com/danjacka/mbrainz-importer/internal/logging"
	"github.com/danjacka/mbrainz-importer/internal/schema"
	"github.com/danjacka/mbrainz-importer/internal/store"
	"github.com/danjacka/mbrainz-importer/internal/stream"
)

// load streams one type's unit file through the idempotent loader. The
// loader's counts land on the summary whether or not the phase succeeds,
// so a failed run still reports how far it got.
func (im *Importer) load(ctx context.Context, log *slog.Logger, conn store.Conn, t schema.Type, ts *TypeSummary) error {
	plog := log.With(logging.String(logging.FieldPhase, "load"))

	unitPath := im.unitsPath(t.Name)
	if _, err := os.Stat(unitPath); err != nil {
		return fmt.Errorf("load %s: no unit file, extract first: %w", t.Name, err)
	}
	plog.Info("load started", logging.String("source", unitPath))

	opts := loader.Options{
		Concurrency:   im.cfg.Import.Concurrency,
		CommitTimeout: im.cfg.CommitTimeout(),
	}
	if t.Sequential {
		opts.Concurrency = 1
	}
	ld := loader.New(conn, t.Name, plog, opts)

	result := stream.Run(ctx, stream.UnitQueue,
		stream.FileSource[batch.Unit](unitPath),
		ld.Consume)

	lr := ld.Result()
	if ts.Units == 0 {
		// Load-only runs learn the unit count from the loader.
		ts.Units = lr.Units
	}
	ts.Committed = lr.Committed
	ts.Skipped = lr.Skipped
	ts.Entities = lr.Entities
	ts.Asserted = lr.Asserted
	ts.Failures = lr.Failures

	if err := result.Err(); err != nil {
		return fmt.Errorf("load %s: %w", t.Name, err)
	}

	plog.Info("load finished",
		logging.Int("committed", lr.Committed),
		logging.Int("skipped", lr.Skipped),
		logging.Int("entities", lr.Entities),
		logging.Int("datoms", lr.Asserted))
	return nil
}
