package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_WritesSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsgen.yaml")

	if err := executeRoot(t, "init", "--out", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# tsgen configuration") {
		t.Errorf("content: got %q", content[:40])
	}
	// Every documented field must be accepted by the config loader.
	for _, field := range []string{"input:", "mode:", "out:", "schemaOut:", "typesOut:", "routesOut:", "dryRun:", "force:", "verbose:"} {
		if !strings.Contains(content, field) {
			t.Errorf("sample config missing %q", field)
		}
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsgen.yaml")
	if err := executeRoot(t, "init", "--out", path); err != nil {
		t.Fatalf("first init: %v", err)
	}

	err := executeRoot(t, "init", "--out", path)
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}

	if err := executeRoot(t, "init", "--out", path, "--force"); err != nil {
		t.Errorf("forced init: %v", err)
	}
}
