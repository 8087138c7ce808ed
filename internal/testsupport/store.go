package testsupport

import (
	"context"
	"testing"

	"github.com/danjacka/mbrainz-importer/internal/config"
	"github.com/danjacka/mbrainz-importer/internal/store"
)

// MustConnect opens the configured database for direct inspection,
// creating it when missing, and registers cleanup.
func MustConnect(t testing.TB, cfg *config.Config) store.Conn {
	t.Helper()

	client, err := store.NewClient(cfg.Store)
	if err != nil {
		t.Fatalf("store.NewClient: %v", err)
	}
	ctx := context.Background()
	if _, err := client.CreateDatabase(ctx, cfg.Store.Database); err != nil {
		t.Fatalf("store.CreateDatabase: %v", err)
	}
	conn, err := client.Connect(ctx, cfg.Store.Database)
	if err != nil {
		t.Fatalf("store.Connect: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}
