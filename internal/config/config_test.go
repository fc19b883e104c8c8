package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GeminiBinary != "gemini" {
		t.Errorf("GeminiBinary = %q, want gemini", cfg.GeminiBinary)
	}
	if cfg.ChunkSizeBytes != 20000 {
		t.Errorf("ChunkSizeBytes = %d, want 20000", cfg.ChunkSizeBytes)
	}
	if cfg.ChunkTTLMinutes != 60 {
		t.Errorf("ChunkTTLMinutes = %d, want 60", cfg.ChunkTTLMinutes)
	}
	if len(cfg.FastModels) != 3 || cfg.FastModels[len(cfg.FastModels)-1] != ModelAuto {
		t.Errorf("FastModels = %v, want 3 entries ending in auto", cfg.FastModels)
	}
	if len(cfg.DeepModels) == 0 || cfg.DeepModels[0] != "gemini-2.5-pro" {
		t.Errorf("DeepModels = %v, want gemini-2.5-pro first", cfg.DeepModels)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	body := `{
		"chunk_size_bytes": 4096,
		"deep_models": ["gemini-2.5-pro"],
		"disabled_tools": ["gemini_validate_path"]
	}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChunkSizeBytes != 4096 {
		t.Errorf("ChunkSizeBytes = %d, want 4096", cfg.ChunkSizeBytes)
	}
	// Untouched scalars keep defaults.
	if cfg.CallTimeoutSeconds != 600 {
		t.Errorf("CallTimeoutSeconds = %d, want default 600", cfg.CallTimeoutSeconds)
	}
	// Plans replace wholesale, never merge.
	if len(cfg.DeepModels) != 1 || cfg.DeepModels[0] != "gemini-2.5-pro" {
		t.Errorf("DeepModels = %v, want exactly the override", cfg.DeepModels)
	}
	if len(cfg.FastModels) != 3 {
		t.Errorf("FastModels = %v, want default plan", cfg.FastModels)
	}
	if len(cfg.DisabledTools) != 1 {
		t.Errorf("DisabledTools = %v", cfg.DisabledTools)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestMergeDisabledToolsDeduplicates(t *testing.T) {
	base := &Config{DisabledTools: []string{"a", "b"}}
	overlay := &Config{DisabledTools: []string{" b ", "c", ""}}
	got := Merge(base, overlay)
	want := []string{"a", "b", "c"}
	if len(got.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", got.DisabledTools, want)
	}
	for i := range want {
		if got.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, got.DisabledTools[i], want[i])
		}
	}
}

func TestResolveRootDefaultsToCwd(t *testing.T) {
	cfg := DefaultConfig()
	root, err := cfg.ResolveRoot()
	if err != nil {
		t.Fatalf("ResolveRoot: %v", err)
	}
	wd, _ := os.Getwd()
	if root != filepath.Clean(wd) {
		t.Errorf("root = %q, want cwd %q", root, wd)
	}
}

func TestResolveRootExplicit(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.TrustedRoot = dir + string(filepath.Separator)
	root, err := cfg.ResolveRoot()
	if err != nil {
		t.Fatalf("ResolveRoot: %v", err)
	}
	if root != filepath.Clean(dir) {
		t.Errorf("root = %q, want %q", root, dir)
	}
}
