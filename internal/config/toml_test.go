package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Play.PlayerID != nil || len(cfg.Levels) != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	table, err := cfg.LevelTable()
	if err != nil {
		t.Fatalf("level table: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected default table, got %d levels", table.Len())
	}
}

func TestLoadConfigLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[play]
player-id = "12345"
direction = "diagonal"
auto-continue = true

[server]
addr = ":9090"

[[levels]]
spawn-rate = 12
duration = 45

[[levels]]
spawn-rate = 20
duration = 30
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Play.PlayerID == nil || *cfg.Play.PlayerID != "12345" {
		t.Fatalf("unexpected player id")
	}
	if cfg.Play.AutoContinue == nil || !*cfg.Play.AutoContinue {
		t.Fatalf("expected auto-continue")
	}
	if cfg.Server.Addr == nil || *cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected server addr")
	}
	table, err := cfg.LevelTable()
	if err != nil {
		t.Fatalf("level table: %v", err)
	}
	if table.Len() != 2 || table.At(2).SpawnRatePerMinute != 20 || table.At(1).RoundDuration != 45 {
		t.Fatalf("unexpected table %+v", table)
	}

	var b strings.Builder
	if err := Render(&b, cfg); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(b.String(), `direction = "diagonal"`) {
		t.Fatalf("rendered config missing direction:\n%s", b.String())
	}
}

func TestLevelTableRejectsBadEntries(t *testing.T) {
	rate := 0.0
	dur := 30
	cfg := FileConfig{Levels: []LevelConfig{{SpawnRate: &rate, Duration: &dur}}}
	if _, err := cfg.LevelTable(); err == nil {
		t.Fatalf("expected zero spawn rate to be rejected")
	}
	cfg = FileConfig{Levels: []LevelConfig{{Duration: &dur}}}
	if _, err := cfg.LevelTable(); err == nil {
		t.Fatalf("expected missing spawn rate to be rejected")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TUIMETEOR_TEST_VALUE", "set")
	if got := GetEnv("TUIMETEOR_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected env value, got %q", got)
	}
	if got := GetEnv("TUIMETEOR_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
