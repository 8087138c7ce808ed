package config

const (
	defaultBaseDir              = "~/.local/share/mbimport"
	defaultStoreKind            = "sqlite"
	defaultDatabase             = "mbrainz"
	defaultBatchSize            = 100
	defaultConcurrency          = 3
	defaultCommitTimeoutSeconds = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir: defaultBaseDir,
		},
		Store: Store{
			Kind:     defaultStoreKind,
			Database: defaultDatabase,
		},
		Import: Import{
			BatchSize:            defaultBatchSize,
			Concurrency:          defaultConcurrency,
			CommitTimeoutSeconds: defaultCommitTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
