// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/tuimeteor/internal/level"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Play   PlayConfig    `toml:"play"`
	Server ServerConfig  `toml:"server"`
	SSH    SSHConfig     `toml:"ssh"`
	Levels []LevelConfig `toml:"levels"`
}

// PlayConfig maps game settings.
type PlayConfig struct {
	PlayerID     *string `toml:"player-id"`
	Name         *string `toml:"name"`
	Server       *string `toml:"server"`
	Direction    *string `toml:"direction"`
	AutoContinue *bool   `toml:"auto-continue"`
	Scoring      *string `toml:"scoring"`
	Sound        *bool   `toml:"sound"`
	KeyMap       *string `toml:"keymap"`
	Alphabet     *string `toml:"alphabet"`
}

// ServerConfig maps the HTTP record service settings.
type ServerConfig struct {
	Addr       *string `toml:"addr"`
	DB         *string `toml:"db"`
	AdminToken *string `toml:"admin-token"`
}

// SSHConfig maps the SSH game server settings.
type SSHConfig struct {
	Addr    *string `toml:"addr"`
	HostKey *string `toml:"host-key"`
}

// LevelConfig is one [[levels]] entry.
type LevelConfig struct {
	SpawnRate *float64 `toml:"spawn-rate"`
	Duration  *int     `toml:"duration"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// LevelTable builds the progression from [[levels]], falling back to the
// default table when none are configured.
func (c FileConfig) LevelTable() (level.Table, error) {
	if len(c.Levels) == 0 {
		return level.Default, nil
	}
	table := make(level.Table, 0, len(c.Levels))
	for i, lc := range c.Levels {
		if lc.SpawnRate == nil || lc.Duration == nil {
			return nil, fmt.Errorf("levels[%d]: spawn-rate and duration are required", i)
		}
		table = append(table, level.Level{SpawnRatePerMinute: *lc.SpawnRate, RoundDuration: *lc.Duration})
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid levels: %w", err)
	}
	return table, nil
}

// Render writes the effective config as TOML.
func Render(w io.Writer, cfg FileConfig) error {
	return toml.NewEncoder(w).Encode(cfg)
}
