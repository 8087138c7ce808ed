package stream_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danjacka/mbrainz-importer/internal/batch"
	"github.com/danjacka/mbrainz-importer/internal/entity"
	"github.com/danjacka/mbrainz-importer/internal/stream"
)

func TestRunMovesEverything(t *testing.T) {
	var got []int
	result := stream.Run(context.Background(), 4,
		func(ctx context.Context, out chan<- int) error {
			for i := 0; i < 10; i++ {
				if err := stream.Send(ctx, out, i); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, in <-chan int) error {
			for v := range in {
				got = append(got, v)
			}
			return nil
		},
	)
	if err := result.Err(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("consumed %d values, want 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("value %d out of order: got %d", i, v)
		}
	}
}

func TestRunProducerErrorReachesResult(t *testing.T) {
	boom := errors.New("source went away")
	result := stream.Run(context.Background(), 2,
		func(ctx context.Context, out chan<- int) error {
			if err := stream.Send(ctx, out, 1); err != nil {
				return err
			}
			return boom
		},
		func(ctx context.Context, in <-chan int) error {
			for range in {
			}
			return nil
		},
	)
	if !errors.Is(result.Produce, boom) {
		t.Fatalf("Produce = %v, want %v", result.Produce, boom)
	}
	if result.Consume != nil {
		t.Fatalf("Consume = %v, want nil", result.Consume)
	}
	if !errors.Is(result.Err(), boom) {
		t.Fatalf("Err() = %v, want %v", result.Err(), boom)
	}
}

// A consumer that bails out early must unblock a producer stuck on a full
// queue, and the merged error must be the consumer's, not the producer's
// cancellation echo.
func TestRunConsumerErrorUnblocksProducer(t *testing.T) {
	boom := errors.New("store rejected unit")
	done := make(chan stream.Result, 1)
	go func() {
		done <- stream.Run(context.Background(), 1,
			func(ctx context.Context, out chan<- int) error {
				for i := 0; ; i++ {
					if err := stream.Send(ctx, out, i); err != nil {
						return err
					}
				}
			},
			func(ctx context.Context, in <-chan int) error {
				<-in
				return boom
			},
		)
	}()

	select {
	case result := <-done:
		if !errors.Is(result.Consume, boom) {
			t.Fatalf("Consume = %v, want %v", result.Consume, boom)
		}
		if !errors.Is(result.Produce, context.Canceled) {
			t.Fatalf("Produce = %v, want context.Canceled", result.Produce)
		}
		if err := result.Err(); !errors.Is(err, boom) || errors.Is(err, context.Canceled) {
			t.Fatalf("Err() = %v, want bare %v", err, boom)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not finish; producer stayed blocked")
	}
}

func TestResultErrKeepsBothRealErrors(t *testing.T) {
	produceErr := errors.New("read failed")
	consumeErr := errors.New("write failed")
	err := stream.Result{Produce: produceErr, Consume: consumeErr}.Err()
	if !errors.Is(err, produceErr) || !errors.Is(err, consumeErr) {
		t.Fatalf("Err() = %v, want both causes", err)
	}
}

func TestFileSinkAndSourceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artists.jsonl")
	units := []batch.Unit{
		{ID: "artists-0", Type: "artists", Index: 0, Fragments: []entity.Fragment{
			{"artist/gid": "b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d", "artist/name": "The Beatles"},
		}},
		{ID: "artists-1", Type: "artists", Index: 1, Fragments: []entity.Fragment{
			{"artist/gid": "5441c29d-3602-4898-b1a1-b77fa23b8e50", "artist/name": "David Bowie"},
		}},
	}

	result := stream.Run(context.Background(), stream.UnitQueue,
		func(ctx context.Context, out chan<- batch.Unit) error {
			for _, unit := range units {
				if err := stream.Send(ctx, out, unit); err != nil {
					return err
				}
			}
			return nil
		},
		stream.FileSink[batch.Unit](path),
	)
	if err := result.Err(); err != nil {
		t.Fatalf("sink run: %v", err)
	}

	var got []batch.Unit
	result = stream.Run(context.Background(), stream.UnitQueue,
		stream.FileSource[batch.Unit](path),
		func(ctx context.Context, in <-chan batch.Unit) error {
			for unit := range in {
				got = append(got, unit)
			}
			return nil
		},
	)
	if err := result.Err(); err != nil {
		t.Fatalf("source run: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("read %d units, want 2", len(got))
	}
	if got[0].ID != "artists-0" || got[1].ID != "artists-1" {
		t.Fatalf("unit ids %q, %q", got[0].ID, got[1].ID)
	}
	name := got[1].Fragments[0]["artist/name"]
	if name != "David Bowie" {
		t.Fatalf("fragment did not survive the trip: %v", name)
	}
}

func TestFileSinkDiscardsPartialFileOnProducerError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "releases.jsonl")
	if err := os.WriteFile(path, []byte("{\"id\":\"releases-0\"}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("bad record")
	result := stream.Run(context.Background(), 4,
		func(ctx context.Context, out chan<- batch.Unit) error {
			if err := stream.Send(ctx, out, batch.Unit{ID: "releases-0"}); err != nil {
				return err
			}
			return boom
		},
		stream.FileSink[batch.Unit](path),
	)
	if !errors.Is(result.Err(), boom) {
		t.Fatalf("Err() = %v, want %v", result.Err(), boom)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{\"id\":\"releases-0\"}\n" {
		t.Fatalf("previous file was replaced by a partial write: %q", got)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	result := stream.Run(context.Background(), 4,
		stream.FileSource[batch.Unit](filepath.Join(t.TempDir(), "absent.jsonl")),
		func(ctx context.Context, in <-chan batch.Unit) error {
			for range in {
			}
			return nil
		},
	)
	if !errors.Is(result.Err(), os.ErrNotExist) {
		t.Fatalf("Err() = %v, want not-exist", result.Err())
	}
}
