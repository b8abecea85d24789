package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuimeteor/internal/config"
)

var configShow bool

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
	cmd.Flags().BoolVar(&configShow, "show", false, "print the parsed config instead of opening an editor")
	return cmd
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if configShow {
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if _, err := fileCfg.LevelTable(); err != nil {
			return err
		}
		return config.Render(cmd.OutOrStdout(), fileCfg)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	c := exec.Command(parts[0], append(parts[1:], path)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuimeteor configuration
# Uncomment a value to enable it. CLI flags override config values.

[play]
# player-id = "12345"      # Prefills the login form
# name = ""                # Display name
# server = ""              # Record service URL (empty: local database)
# direction = %q     # straight or diagonal
# auto-continue = false    # Start the next round without waiting for enter
# scoring = %q         # tiered (3/2/1 by reaction time) or flat
# sound = false            # Feedback tones
# keymap = %q          # dachen or none
# alphabet = ""            # Custom alphabet file, one glyph per line

[server]
# addr = %q            # tuimeteor serve listen address ($%s)
# db = ""                  # sqlite path ($%s)
# admin-token = ""         # Enables admin routes ($%s)

[ssh]
# addr = %q            # tuimeteor ssh listen address
# host-key = ""            # Generated when missing

# Progression, one table per level. Defaults to 10/min then 15/min, 60s each.
# [[levels]]
# spawn-rate = 10.0
# duration = 60
`,
		defaultDirection,
		defaultScoring,
		defaultKeyMap,
		defaultAddr,
		envAddr,
		envDB,
		envAdminToken,
		defaultSSHAddr,
	)
}
