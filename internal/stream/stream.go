// Package stream runs one producer and one consumer over a bounded channel.
// Both pipeline phases ride on it: extract feeds source records through the
// transform into a unit file, load feeds stored units into the committer.
//
// Run owns the channel lifecycle. The channel is closed exactly once, when
// the producer returns, and the first error from either side cancels the
// shared context so the other side can stop early instead of blocking on a
// full or empty queue.
package stream

import (
	"context"
	"errors"
	"sync"
)

// Queue depths for the two phases. Extract moves small record maps and gets
// a deep queue; load moves whole units and keeps fewer in flight.
const (
	RecordQueue = 1000
	UnitQueue   = 100
)

// Producer feeds values into out until its source is exhausted. It must not
// close out and must abandon blocked sends when ctx is done (use Send).
type Producer[T any] func(ctx context.Context, out chan<- T) error

// Consumer drains values from in until the channel closes or ctx is done.
type Consumer[T any] func(ctx context.Context, in <-chan T) error

// Result carries both sides' outcomes of one run.
type Result struct {
	Produce error
	Consume error
}

// Err merges the two outcomes into a single error. When one side failed
// first and the other only reports the resulting cancellation, the echo is
// dropped so the root cause surfaces alone.
func (r Result) Err() error {
	produce, consume := r.Produce, r.Consume
	if echoOf(consume, produce) {
		consume = nil
	}
	if echoOf(produce, consume) {
		produce = nil
	}
	switch {
	case produce != nil && consume != nil:
		return errors.Join(produce, consume)
	case produce != nil:
		return produce
	default:
		return consume
	}
}

func echoOf(err, other error) bool {
	return errors.Is(err, context.Canceled) && other != nil && !errors.Is(other, context.Canceled)
}

// Run executes produce and consume concurrently over a channel of the given
// capacity and waits for both to finish.
func Run[T any](ctx context.Context, capacity int, produce Producer[T], consume Consumer[T]) Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan T, capacity)
	var result Result
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(queue)
		if err := produce(ctx, queue); err != nil {
			result.Produce = err
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := consume(ctx, queue); err != nil {
			result.Consume = err
			cancel()
		}
	}()
	wg.Wait()
	return result
}

// Send delivers v to out unless ctx is done first.
func Send[T any](ctx context.Context, out chan<- T, v T) error {
	select {
	case out <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
