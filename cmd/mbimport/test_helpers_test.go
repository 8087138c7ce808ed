package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danjacka/mbrainz-importer/internal/config"
	"github.com/danjacka/mbrainz-importer/internal/testsupport"
)

const (
	testBowieGID   = "5441c29d-3602-4898-b1a1-b77fa23b8e50"
	testReleaseGID = "16b58f83-cbc4-4a86-a811-682aef043500"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	cfg        *config.Config
}

// setupCLITestEnv writes a config file pointing at a fresh base directory
// and loads it back the way the commands will.
func setupCLITestEnv(t *testing.T, storeKind string, entityTypes ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "mbimport.toml")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[paths]\nbase_dir = %q\n\n", base)
	fmt.Fprintf(&sb, "[store]\nkind = %q\ndatabase = \"mbrainz_test\"\n\n", storeKind)
	sb.WriteString("[import]\nbatch_size = 4\nconcurrency = 2\ncommit_timeout_seconds = 5\n")
	if len(entityTypes) > 0 {
		quoted := make([]string, len(entityTypes))
		for i, name := range entityTypes {
			quoted[i] = fmt.Sprintf("%q", name)
		}
		fmt.Fprintf(&sb, "entity_types = [%s]\n", strings.Join(quoted, ", "))
	}
	sb.WriteString("\n[logging]\nlevel = \"error\"\n")

	if err := os.WriteFile(configPath, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath, cfg: cfg}
}

func (env *cliTestEnv) writeArtistRecords(t *testing.T) {
	t.Helper()
	testsupport.WriteRecords(t, env.cfg, "artists",
		map[string]any{
			"gid": testBowieGID, "name": "David Bowie", "sortName": "Bowie, David",
			"type": "Person", "gender": "Male", "country": "GB",
		},
	)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
