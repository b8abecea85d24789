// Package main provides the CLI entrypoint for tuimeteor.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuimeteor/internal/config"
	"github.com/verte-zerg/tuimeteor/internal/field"
	"github.com/verte-zerg/tuimeteor/internal/game"
	"github.com/verte-zerg/tuimeteor/internal/glyph"
	"github.com/verte-zerg/tuimeteor/internal/level"
	"github.com/verte-zerg/tuimeteor/internal/logging"
	"github.com/verte-zerg/tuimeteor/internal/model"
	"github.com/verte-zerg/tuimeteor/internal/profile"
	"github.com/verte-zerg/tuimeteor/internal/sound"
	"github.com/verte-zerg/tuimeteor/internal/tui"
)

const (
	defaultDirection = "straight"
	defaultScoring   = "tiered"
	defaultKeyMap    = "dachen"
	defaultAddr      = ":8080"
	defaultSSHAddr   = ":2222"
	defaultTimeout   = 5 * time.Second
)

var (
	globalServer   string
	globalDB       string
	globalLogLevel string

	playID           string
	playName         string
	playDirection    string
	playAutoContinue bool
	playScoring      string
	playSound        bool
	playKeyMap       string
	playAlphabet     string
	playSeed         int64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuimeteor",
		Short:         "Zhuyin typing meteor game",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.PersistentFlags().StringVar(&globalServer, "server", "", "record service URL (default: local database)")
	rootCmd.PersistentFlags().StringVar(&globalDB, "db", config.DefaultDBPath(), "local sqlite database path")
	rootCmd.PersistentFlags().StringVar(&globalLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	addPlayFlags(rootCmd)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSSHCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newGroupsCmd())
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newBoardCmd())
	rootCmd.AddCommand(newAdminCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// addPlayFlags registers the game flags shared by the root and ssh commands.
func addPlayFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&playID, "id", "", "5-digit player id (prefills the login form)")
	cmd.Flags().StringVar(&playName, "name", "", "display name")
	cmd.Flags().StringVar(&playDirection, "direction", defaultDirection, "meteor motion (straight, diagonal)")
	cmd.Flags().BoolVar(&playAutoContinue, "auto-continue", false, "start the next round without waiting for enter")
	cmd.Flags().StringVar(&playScoring, "scoring", defaultScoring, "scoring policy (tiered, flat)")
	cmd.Flags().BoolVar(&playSound, "sound", false, "play feedback tones")
	cmd.Flags().StringVar(&playKeyMap, "keymap", defaultKeyMap, "key map for typing without an IME (dachen, none)")
	cmd.Flags().StringVar(&playAlphabet, "alphabet", "", "custom alphabet file, one glyph per line")
	cmd.Flags().Int64Var(&playSeed, "seed", 0, "spawn seed (0 picks one from the clock)")
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyPlayConfig(cmd, fileCfg)
	cfg := playConfig()
	levels, err := fileCfg.LevelTable()
	if err != nil {
		return err
	}
	sessCfg, keymap, err := buildSessionConfig(cfg, levels)
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.OpenFile(config.DefaultLogPath(), globalLogLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logCloser.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	be, err := openBackend(cfg.Server, globalDB, resolveAdminToken(fileCfg, ""))
	if err != nil {
		return err
	}
	defer be.Close()

	prof, err := profile.Open(profile.AppName)
	if err != nil {
		logger.Warn("profile unavailable", "err", err)
		prof = nil
	}
	if prof != nil && cfg.PlayerID == "" {
		saved, ok, err := prof.Load()
		if err != nil {
			logger.Warn("failed to load profile", "err", err)
		} else if ok {
			cfg.PlayerID = saved.PlayerID
			if cfg.Name == "" {
				cfg.Name = saved.Name
			}
		}
	}

	var feedback sound.Player = sound.Nop{}
	if cfg.Sound {
		sp, err := sound.NewSpeaker()
		if err != nil {
			logger.Warn("sound disabled", "err", err)
		} else {
			feedback = sp
		}
	}

	session, err := game.NewSession(sessCfg)
	if err != nil {
		return err
	}
	m := tui.NewModel(tui.Options{
		Session:  session,
		Gateway:  be.Gateway,
		KeyMap:   keymap,
		Sound:    feedback,
		Profile:  prof,
		Logger:   logger,
		PlayerID: cfg.PlayerID,
		Name:     cfg.Name,
	})
	defer m.Close()
	logger.Info("starting game", "server", cfg.Server, "levels", levels.Len(), "direction", cfg.Direction, "scoring", cfg.Scoring)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func applyPlayConfig(cmd *cobra.Command, fileCfg config.FileConfig) {
	applyStringConfig(cmd, "server", &globalServer, fileCfg.Play.Server)
	applyStringConfig(cmd, "db", &globalDB, fileCfg.Server.DB)
	applyStringConfig(cmd, "id", &playID, fileCfg.Play.PlayerID)
	applyStringConfig(cmd, "name", &playName, fileCfg.Play.Name)
	applyStringConfig(cmd, "direction", &playDirection, fileCfg.Play.Direction)
	applyBoolConfig(cmd, "auto-continue", &playAutoContinue, fileCfg.Play.AutoContinue)
	applyStringConfig(cmd, "scoring", &playScoring, fileCfg.Play.Scoring)
	applyBoolConfig(cmd, "sound", &playSound, fileCfg.Play.Sound)
	applyStringConfig(cmd, "keymap", &playKeyMap, fileCfg.Play.KeyMap)
	applyStringConfig(cmd, "alphabet", &playAlphabet, fileCfg.Play.Alphabet)
}

func playConfig() model.PlayConfig {
	return model.PlayConfig{
		PlayerID:     strings.TrimSpace(playID),
		Name:         playName,
		Server:       strings.TrimSpace(globalServer),
		Direction:    playDirection,
		AutoContinue: playAutoContinue,
		Scoring:      playScoring,
		Sound:        playSound,
		KeyMap:       playKeyMap,
		AlphabetFile: playAlphabet,
		Seed:         playSeed,
	}
}

// buildSessionConfig validates the play settings and resolves the alphabet
// and key map they name.
func buildSessionConfig(cfg model.PlayConfig, levels level.Table) (game.Config, glyph.KeyMap, error) {
	direction, err := field.ParseDirection(cfg.Direction)
	if err != nil {
		return game.Config{}, nil, fmt.Errorf("invalid --direction: %w", err)
	}
	scoring, err := game.ParseScoring(cfg.Scoring)
	if err != nil {
		return game.Config{}, nil, fmt.Errorf("invalid --scoring: %w", err)
	}
	keymap, ok := glyph.KeyMapByName(cfg.KeyMap)
	if !ok {
		return game.Config{}, nil, fmt.Errorf("invalid --keymap %q (use dachen or none)", cfg.KeyMap)
	}
	alphabet := glyph.Zhuyin
	if cfg.AlphabetFile != "" {
		alphabet, err = glyph.LoadAlphabet(cfg.AlphabetFile)
		if err != nil {
			return game.Config{}, nil, fmt.Errorf("failed to load alphabet: %w", err)
		}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return game.Config{
		Levels:       levels,
		Alphabet:     alphabet,
		Direction:    direction,
		Scoring:      scoring,
		AutoContinue: cfg.AutoContinue,
		Seed:         seed,
	}, keymap, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

// applyEnv overrides target from the environment unless the flag was set.
func applyEnv(cmd *cobra.Command, name, key string, target *string) {
	if cmd.Flags().Changed(name) {
		return
	}
	*target = config.GetEnv(key, *target)
}

func newStderrLogger() (*log.Logger, error) {
	return logging.New(os.Stderr, globalLogLevel)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
