package store

import (
	"context"
	"fmt"

	"github.com/danjacka/mbrainz-importer/internal/config"
	"github.com/danjacka/mbrainz-importer/internal/entity"
)

// Client opens databases of one configured backend.
type Client interface {
	// CreateDatabase makes the named database when it does not already
	// exist, reporting whether it was created.
	CreateDatabase(ctx context.Context, name string) (bool, error)

	// Connect opens the named database and applies migrations. The
	// database must exist.
	Connect(ctx context.Context, name string) (Conn, error)
}

// Conn is one open database.
type Conn interface {
	// Transact applies fragments atomically. Either every fragment lands
	// or none do.
	Transact(ctx context.Context, fragments []entity.Fragment) (*TxReport, error)

	// MarkerValues returns every stored value of the given unique
	// attribute.
	MarkerValues(ctx context.Context, attr string) (map[string]struct{}, error)

	Close() error
}

// TxReport summarizes one committed transaction.
type TxReport struct {
	// TempIDs maps the transaction's temp ids to the entities they
	// resolved to.
	TempIDs map[entity.TempID]int64
	// Entities counts entities the transaction created.
	Entities int
	// Asserted counts datoms the transaction added.
	Asserted int
}

// NewClient builds the client for the configured backend.
func NewClient(cfg config.Store) (Client, error) {
	switch cfg.Kind {
	case "sqlite":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("sqlite store requires a directory")
		}
		return &sqliteClient{dir: cfg.Dir}, nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
		return &postgresClient{dsn: cfg.DSN}, nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store kind %q", cfg.Kind)
	}
}
