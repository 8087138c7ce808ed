package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/danjacka/mbrainz-importer/internal/config"
)

// WriteRecords writes the JSONL source record file for the named type
// under the config's entities directory, one record per line.
func WriteRecords(t testing.TB, cfg *config.Config, typeName string, records ...map[string]any) {
	t.Helper()

	if err := os.MkdirAll(cfg.EntitiesDir(), 0o755); err != nil {
		t.Fatalf("mkdir entities dir: %v", err)
	}
	path := filepath.Join(cfg.EntitiesDir(), typeName+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			t.Fatalf("encode record: %v", err)
		}
	}
}
