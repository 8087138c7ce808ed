// Package loader commits batch units against the store, in parallel and
// idempotently. Before committing anything it queries the markers of
// previously committed units and skips those, so a rerun after a partial
// failure only pays for the work that is missing. Every commit asserts its
// unit's marker in the same transaction, which makes the marker's unique
// value the backstop against double commits the filter cannot see.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danjacka/mbrainz-importer/internal/batch"
	"github.com/danjacka/mbrainz-importer/internal/entity"
	"github.com/danjacka/mbrainz-importer/internal/logging"
	"github.com/danjacka/mbrainz-importer/internal/schema"
	"github.com/danjacka/mbrainz-importer/internal/store"
	"github.com/danjacka/mbrainz-importer/internal/stream"
)

const (
	// DefaultConcurrency is the number of commit workers.
	DefaultConcurrency = 3
	// DefaultCommitTimeout bounds one unit's transaction.
	DefaultCommitTimeout = 30 * time.Second
)

// Options tune one load.
type Options struct {
	Concurrency   int
	CommitTimeout time.Duration
	MarkerAttr    string
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.CommitTimeout <= 0 {
		o.CommitTimeout = DefaultCommitTimeout
	}
	if o.MarkerAttr == "" {
		o.MarkerAttr = schema.BatchIDAttr
	}
	return o
}

// Result summarizes one type's load.
type Result struct {
	Type      string
	Units     int
	Skipped   int
	Committed int
	Entities  int
	Asserted  int
	Failures  []*store.Failure
}

// Failed reports whether any unit failed.
func (r *Result) Failed() bool { return len(r.Failures) > 0 }

// Loader commits one type's units.
type Loader struct {
	conn store.Conn
	opts Options
	log  *slog.Logger

	mu     sync.Mutex
	result Result
}

// New builds a loader for one entity type.
func New(conn store.Conn, typeName string, log *slog.Logger, opts Options) *Loader {
	if log == nil {
		log = logging.NewNop()
	}
	return &Loader{
		conn:   conn,
		opts:   opts.withDefaults(),
		log:    log,
		result: Result{Type: typeName},
	}
}

// Consume drains units from in and commits the ones whose markers are not
// yet in the store. It is shaped as a stream consumer; the importer feeds
// it from a unit file. The first failure stops further dispatch and is
// returned, with every observed failure recorded in the result.
func (l *Loader) Consume(ctx context.Context, in <-chan batch.Unit) error {
	committed, err := l.markers(ctx)
	if err != nil {
		failure := store.NewFailure(store.CategoryQuery, "", "querying committed markers", err)
		l.record(failure)
		return failure
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < l.opts.Concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case unit, ok := <-in:
					if !ok {
						return nil
					}
					l.count()
					if _, done := committed[unit.ID]; done {
						l.skip(unit)
						continue
					}
					if failure := l.commit(gctx, unit); failure != nil {
						// A commit torn down because another worker
						// already failed is not a failure of its own.
						if gctx.Err() != nil && errors.Is(failure.Err, context.Canceled) {
							return gctx.Err()
						}
						l.record(failure)
						return failure
					}
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}
	err = g.Wait()

	l.mu.Lock()
	sort.Slice(l.result.Failures, func(i, j int) bool {
		return l.result.Failures[i].BatchID < l.result.Failures[j].BatchID
	})
	l.mu.Unlock()
	return err
}

// Result returns the accumulated summary. Call it after Consume returns.
func (l *Loader) Result() *Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.result
	return &out
}

func (l *Loader) markers(ctx context.Context) (map[string]struct{}, error) {
	qctx, cancel := context.WithTimeout(ctx, l.opts.CommitTimeout)
	defer cancel()
	return l.conn.MarkerValues(qctx, l.opts.MarkerAttr)
}

func (l *Loader) commit(ctx context.Context, unit batch.Unit) *store.Failure {
	commitCtx, cancel := context.WithTimeout(ctx, l.opts.CommitTimeout)
	defer cancel()

	fragments := make([]entity.Fragment, 0, len(unit.Fragments)+1)
	fragments = append(fragments, unit.Fragments...)
	fragments = append(fragments, entity.Fragment{l.opts.MarkerAttr: unit.ID})

	report, err := l.conn.Transact(commitCtx, fragments)
	if err != nil {
		return store.ClassifyCommit(commitCtx, err, unit.ID)
	}

	l.mu.Lock()
	l.result.Committed++
	l.result.Entities += report.Entities
	l.result.Asserted += report.Asserted
	l.mu.Unlock()

	l.log.Debug("batch committed",
		logging.String(logging.FieldBatchID, unit.ID),
		logging.Int("fragments", len(unit.Fragments)),
		logging.Int("entities", report.Entities),
		logging.Int("datoms", report.Asserted))
	return nil
}

func (l *Loader) count() {
	l.mu.Lock()
	l.result.Units++
	l.mu.Unlock()
}

func (l *Loader) skip(unit batch.Unit) {
	l.mu.Lock()
	l.result.Skipped++
	l.mu.Unlock()
	l.log.Debug("batch already committed",
		logging.String(logging.FieldBatchID, unit.ID))
}

func (l *Loader) record(failure *store.Failure) {
	l.mu.Lock()
	l.result.Failures = append(l.result.Failures, failure)
	l.mu.Unlock()
	l.log.Error("batch failed",
		logging.String(logging.FieldBatchID, failure.BatchID),
		logging.String(logging.FieldCategory, string(failure.Category)),
		logging.Error(failure))
}

// Load commits units from a slice, for callers that do not stream.
func Load(ctx context.Context, conn store.Conn, typeName string, units []batch.Unit, log *slog.Logger, opts Options) (*Result, error) {
	l := New(conn, typeName, log, opts)
	result := stream.Run(ctx, stream.UnitQueue,
		func(ctx context.Context, out chan<- batch.Unit) error {
			for _, unit := range units {
				if err := stream.Send(ctx, out, unit); err != nil {
					return err
				}
			}
			return nil
		},
		l.Consume,
	)
	return l.Result(), result.Err()
}
