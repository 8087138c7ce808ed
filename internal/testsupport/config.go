// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/danjacka/mbrainz-importer/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted in a unique temp directory, backed
// by the in-memory store and sized for small fixtures.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BaseDir = base
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Store.Kind = "memory"
	cfg.Store.Database = "mbrainz_test"
	cfg.Import.BatchSize = 4
	cfg.Import.Concurrency = 2
	cfg.Import.CommitTimeoutSeconds = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSQLiteStore switches the store to a sqlite directory under the
// config's base directory.
func WithSQLiteStore() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Store.Kind = "sqlite"
		cfg.Store.Dir = filepath.Join(cfg.Paths.BaseDir, "store")
	}
}

// WithBatchSize overrides the batch size.
func WithBatchSize(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Import.BatchSize = size
	}
}

// WithEntityTypes restricts runs to the named types.
func WithEntityTypes(names ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Import.EntityTypes = names
	}
}
