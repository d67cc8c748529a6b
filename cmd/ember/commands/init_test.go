package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
)

func TestWriteInitConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := writeInitConfig(dir, newInitConfig("handlers", 8080), false)
	if err != nil {
		t.Fatalf("writeInitConfig failed: %v", err)
	}
	if path != filepath.Join(dir, "ember.yaml") {
		t.Errorf("path = %q", path)
	}
	if info, err := os.Stat(filepath.Join(dir, "handlers")); err != nil || !info.IsDir() {
		t.Error("route root should be created")
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hot_reload") {
		t.Errorf("hot_reload must be left to follow dev:\n%s", data)
	}

	cfg, err := ember.LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ParentFolder != "handlers" || cfg.Port != 8080 || !cfg.RawFallback || !cfg.MatchCache.Enabled {
		t.Errorf("config = %+v", cfg)
	}
}

func TestWriteInitConfig_Exists(t *testing.T) {
	dir := t.TempDir()
	if _, err := writeInitConfig(dir, newInitConfig("routes", 5000), false); err != nil {
		t.Fatal(err)
	}

	if _, err := writeInitConfig(dir, newInitConfig("routes", 5000), false); err == nil {
		t.Error("expected an error for an existing ember.yaml")
	}
	if _, err := writeInitConfig(dir, newInitConfig("api", 5001), true); err != nil {
		t.Errorf("--force should overwrite: %v", err)
	}
}

func TestWriteInitConfig_EmptyRoot(t *testing.T) {
	if _, err := writeInitConfig(t.TempDir(), newInitConfig("", 5000), false); err == nil {
		t.Error("expected an error for an empty route root")
	}
}
