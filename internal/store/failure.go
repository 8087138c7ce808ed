package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors tagging why a transaction was rejected. Transact wraps
// its semantic failures with these so callers can classify without parsing
// messages.
var (
	// ErrData marks transaction data the store cannot apply: unknown
	// attributes, unresolvable idents or lookups, type mismatches.
	ErrData = errors.New("invalid transaction data")

	// ErrConflict marks a unique value already claimed by another entity.
	ErrConflict = errors.New("uniqueness conflict")
)

// Category buckets load failures for reporting.
type Category string

const (
	// CategoryQuery covers failures reading committed state before any
	// commit was attempted.
	CategoryQuery Category = "query"
	// CategoryCommit covers transaction failures with no more specific
	// cause.
	CategoryCommit Category = "commit"
	// CategoryTimeout covers commits that exceeded their deadline.
	CategoryTimeout Category = "timeout"
	// CategoryConflict covers unique-value collisions, including a batch
	// marker already present.
	CategoryConflict Category = "conflict"
	// CategoryData covers transaction data the store rejected.
	CategoryData Category = "data"
)

// Failure describes one failed load operation with enough context for the
// run report.
type Failure struct {
	Category Category
	BatchID  string
	Message  string
	Err      error
}

// NewFailure builds a Failure with an explicit category.
func NewFailure(category Category, batchID, message string, err error) *Failure {
	return &Failure{Category: category, BatchID: batchID, Message: message, Err: err}
}

func (f *Failure) Error() string {
	parts := make([]string, 0, 3)
	if f.BatchID != "" {
		parts = append(parts, f.BatchID)
	}
	if f.Message != "" {
		parts = append(parts, f.Message)
	}
	if f.Err != nil {
		parts = append(parts, f.Err.Error())
	}
	if len(parts) == 0 {
		return string(f.Category)
	}
	return strings.Join(parts, ": ")
}

func (f *Failure) Unwrap() error { return f.Err }

// ClassifyCommit wraps a commit error as a Failure for the given unit,
// inferring the category from the error chain. ctx is the commit's own
// context, consulted so a driver error caused by an expired deadline still
// lands in the timeout bucket.
func ClassifyCommit(ctx context.Context, err error, batchID string) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewFailure(CategoryTimeout, batchID, "commit timed out", err)
	case errors.Is(err, ErrConflict):
		return NewFailure(CategoryConflict, batchID, "unique value already present", err)
	case errors.Is(err, ErrData):
		return NewFailure(CategoryData, batchID, "transaction data rejected", err)
	default:
		return NewFailure(CategoryCommit, batchID, "commit failed", err)
	}
}

func dataErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrData, fmt.Sprintf(format, args...))
}

func conflictErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
