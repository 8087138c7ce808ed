package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Kind {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("store.kind must be one of sqlite, postgres, memory (got %q)", c.Store.Kind)
	}
	if c.Store.Database == "" {
		return errors.New("store.database must be set")
	}
	if !validDatabaseName(c.Store.Database) {
		return fmt.Errorf("store.database %q may only contain letters, digits, underscores, and hyphens", c.Store.Database)
	}
	if c.Store.Kind == "postgres" && strings.TrimSpace(c.Store.DSN) == "" {
		return errors.New("store.dsn must be set when store.kind is postgres (or set MBIMPORT_STORE_DSN)")
	}
	return nil
}

func (c *Config) validateImport() error {
	if err := ensurePositiveMap(map[string]int{
		"import.batch_size":             c.Import.BatchSize,
		"import.concurrency":            c.Import.Concurrency,
		"import.commit_timeout_seconds": c.Import.CommitTimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

// validDatabaseName keeps the database name usable as both a file name and a
// SQL identifier.
func validDatabaseName(name string) bool {
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9', r == '_', r == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return name != ""
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
