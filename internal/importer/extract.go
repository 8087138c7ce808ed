package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/danjacka/mbrainz-importer/internal/batch"
	"github.com/danjacka/mbrainz-importer/internal/entity"
	"github.com/danjacka/mbrainz-importer/internal/fileutil"
	"github.com/danjacka/mbrainz-importer/internal/logging"
	"github.com/danjacka/mbrainz-importer/internal/schema"
	"github.com/danjacka/mbrainz-importer/internal/stream"
	"github.com/danjacka/mbrainz-importer/internal/transform"
)

// extract produces one type's batch unit file. Builtin types generate
// their fragments from schema declarations; record-backed types stream
// the type's source file through the transform engine.
func (im *Importer) extract(ctx context.Context, log *slog.Logger, t schema.Type, ts *TypeSummary) error {
	plog := log.With(logging.String(logging.FieldPhase, "extract"))
	unitPath := im.unitsPath(t.Name)

	if t.Kind == schema.KindBuiltin {
		fragments, ok := schema.BuiltinFragments(t.Name)
		if !ok {
			return fmt.Errorf("extract %s: no builtin fragments", t.Name)
		}
		ts.Fragments = len(fragments)
		if err := im.writeUnits(unitPath, t.Name, fragments, ts); err != nil {
			return fmt.Errorf("extract %s: %w", t.Name, err)
		}
		plog.Info("extract finished",
			logging.Int("fragments", ts.Fragments),
			logging.Int("units", ts.Units))
		return nil
	}

	recordPath := im.recordsPath(t.Name)
	plog.Info("extract started", logging.String("source", recordPath))

	result := stream.Run(ctx, stream.RecordQueue,
		stream.FileSource[entity.Raw](recordPath),
		im.unitWriter(t, unitPath, ts))
	if err := result.Err(); err != nil {
		return fmt.Errorf("extract %s: %w", t.Name, err)
	}

	plog.Info("extract finished",
		logging.Int("records", ts.Records),
		logging.Int("fragments", ts.Fragments),
		logging.Int("units", ts.Units))
	return nil
}

// unitWriter consumes raw records, maps them to fragments, and writes
// the batched units atomically. A failed or canceled run never replaces
// the previous unit file.
func (im *Importer) unitWriter(t schema.Type, path string, ts *TypeSummary) stream.Consumer[entity.Raw] {
	return func(ctx context.Context, in <-chan entity.Raw) error {
		return fileutil.WriteAtomic(path, func(w io.Writer) error {
			builder, err := batch.NewBuilder(t.Name, im.cfg.Import.BatchSize)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			emit := func(fragment entity.Fragment) error {
				if len(fragment) == 0 {
					return nil
				}
				ts.Fragments++
				unit, ok := builder.Add(fragment)
				if !ok {
					return nil
				}
				ts.Units++
				return enc.Encode(unit)
			}

			switch t.Kind {
			case schema.KindEntity:
				for raw := range in {
					ts.Records++
					fragment, err := im.engine.Record(raw, t.Fields)
					if err != nil {
						return err
					}
					if err := emit(fragment); err != nil {
						return err
					}
				}
			case schema.KindComposite:
				group := transform.NewComposite(im.engine, t.Composite)
				for raw := range in {
					ts.Records++
					done, err := group.Add(raw)
					if err != nil {
						return err
					}
					if done != nil {
						if err := emit(done); err != nil {
							return err
						}
					}
				}
				if done := group.Flush(); done != nil {
					if err := emit(done); err != nil {
						return err
					}
				}
			default:
				return fmt.Errorf("type %q has no record source", t.Name)
			}

			if unit, ok := builder.Flush(); ok {
				ts.Units++
				if err := enc.Encode(unit); err != nil {
					return err
				}
			}
			return ctx.Err()
		})
	}
}

// writeUnits batches pre-built fragments straight into a unit file.
func (im *Importer) writeUnits(path, typeName string, fragments []entity.Fragment, ts *TypeSummary) error {
	builder, err := batch.NewBuilder(typeName, im.cfg.Import.BatchSize)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for _, fragment := range fragments {
			unit, ok := builder.Add(fragment)
			if !ok {
				continue
			}
			ts.Units++
			if err := enc.Encode(unit); err != nil {
				return err
			}
		}
		if unit, ok := builder.Flush(); ok {
			ts.Units++
			return enc.Encode(unit)
		}
		return nil
	})
}

func (im *Importer) recordsPath(typeName string) string {
	return filepath.Join(im.cfg.EntitiesDir(), typeName+".jsonl")
}

func (im *Importer) unitsPath(typeName string) string {
	return filepath.Join(im.cfg.BatchesDir(), typeName+".jsonl")
}
