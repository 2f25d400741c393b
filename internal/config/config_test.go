package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"reelvault/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantTemp := filepath.Join(tempHome, ".local", "share", "reelvault", "temp")
	if cfg.Paths.TempDir != wantTemp {
		t.Fatalf("unexpected temp dir: got %q want %q", cfg.Paths.TempDir, wantTemp)
	}
	if cfg.Paths.InboxDir != filepath.Join(tempHome, "reelvault", "inbox") {
		t.Fatalf("unexpected inbox dir: %q", cfg.Paths.InboxDir)
	}
	if cfg.Sheets.PendingMarker != "대기" || cfg.Sheets.ErrorMarker != "에러" || cfg.Sheets.DoneMarker != "완료" {
		t.Fatalf("unexpected markers: %+v", cfg.Sheets)
	}
	if cfg.LLM.MaxInputChars != 40000 {
		t.Fatalf("unexpected max input chars: %d", cfg.LLM.MaxInputChars)
	}
	if cfg.Worker.PollInterval != 1 || cfg.Worker.ScanInterval != 60 {
		t.Fatalf("unexpected worker settings: %+v", cfg.Worker)
	}
	if _, ok := cfg.Categories[config.CategoryOther]; !ok {
		t.Fatal("expected catch-all category in defaults")
	}
}

func TestLoadOverridesAndBackfillsCategories(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "reelvault.toml")
	content := `
[paths]
inbox_dir = "~/videos"

[sheets]
base_url = "https://store.example.com/api/"
pending_marker = "PENDING"

[categories.testimony]
subfolder = "t"

[speaker_map]
"Mary" = "Kenya"

[worker]
scan_interval = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}

	if cfg.Paths.InboxDir != filepath.Join(tempHome, "videos") {
		t.Fatalf("unexpected inbox dir: %q", cfg.Paths.InboxDir)
	}
	if cfg.Sheets.BaseURL != "https://store.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Sheets.BaseURL)
	}
	if cfg.Sheets.PendingMarker != "PENDING" {
		t.Fatalf("unexpected pending marker: %q", cfg.Sheets.PendingMarker)
	}
	if cfg.Sheets.ErrorMarker != "에러" {
		t.Fatalf("expected default error marker, got %q", cfg.Sheets.ErrorMarker)
	}
	if cfg.Categories["testimony"].Subfolder != "t" {
		t.Fatalf("unexpected testimony subfolder: %q", cfg.Categories["testimony"].Subfolder)
	}
	if _, ok := cfg.Categories[config.CategoryMissionNews]; !ok {
		t.Fatal("expected mission_news category backfilled from defaults")
	}
	if cfg.SpeakerMap["Mary"] != "Kenya" {
		t.Fatalf("unexpected speaker map: %v", cfg.SpeakerMap)
	}
	if cfg.Worker.ScanInterval != 5 {
		t.Fatalf("unexpected scan interval: %d", cfg.Worker.ScanInterval)
	}
}

func TestLoadRejectsLLMWithoutModel(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "reelvault.toml")
	content := `
[llm]
api_url = "http://localhost:11434/v1"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for llm.api_url without llm.model")
	}
}

func TestCategoryForFallsBackToOther(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cat := cfg.CategoryFor("unknown-category")
	if cat.Tag != cfg.Categories[config.CategoryOther].Tag {
		t.Fatalf("expected fallback to other, got %+v", cat)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "sample", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config did not load: exists=%v err=%v", exists, err)
	}
}
