package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuimeteor/internal/boardui"
	"github.com/verte-zerg/tuimeteor/internal/config"
	"github.com/verte-zerg/tuimeteor/internal/logging"
	"github.com/verte-zerg/tuimeteor/internal/model"
	"github.com/verte-zerg/tuimeteor/internal/player"
	"github.com/verte-zerg/tuimeteor/internal/profile"
	"github.com/verte-zerg/tuimeteor/internal/records"
	"github.com/verte-zerg/tuimeteor/internal/stats"
)

const (
	defaultStatsLast   = 20
	defaultStatsWindow = 5
)

var (
	boardGroup string
	boardLimit int
	boardWatch bool

	statsID     string
	statsLast   int
	statsWindow int

	adminToken string
	adminMode  string
	adminYes   bool
)

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top players",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().StringVar(&boardGroup, "group", "", "3-digit group prefix")
	cmd.Flags().IntVar(&boardLimit, "limit", records.DefaultLimit, "number of players")
	cmd.Flags().BoolVar(&boardWatch, "watch", false, "reprint on every change (requires --server)")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	be, err := openRecordsBackend(cmd)
	if err != nil {
		return err
	}
	defer be.Close()
	out := cmd.OutOrStdout()
	if err := printLeaderboard(cmd.Context(), out, be.Gateway); err != nil {
		return err
	}
	if !boardWatch {
		return nil
	}
	if be.Live == nil {
		return fmt.Errorf("--watch requires --server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	changed := make(chan struct{}, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- be.Live(ctx, func(model.LiveEvent) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()
	for {
		select {
		case <-changed:
			if _, err := fmt.Fprintln(out); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			if err := printLeaderboard(ctx, out, be.Gateway); err != nil {
				return err
			}
		case err := <-errCh:
			return err
		}
	}
}

func printLeaderboard(ctx context.Context, out io.Writer, gw records.Gateway) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	players, err := gw.Leaderboard(ctx, boardLimit, boardGroup)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return stats.RenderLeaderboard(out, players, stats.TerminalWidth(out))
}

func newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "Print per-group aggregates",
		Args:  cobra.NoArgs,
		RunE:  runGroupsCmd,
	}
}

func runGroupsCmd(cmd *cobra.Command, _ []string) error {
	be, err := openRecordsBackend(cmd)
	if err != nil {
		return err
	}
	defer be.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()
	groups, err := be.Gateway.Groups(ctx)
	if err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	out := cmd.OutOrStdout()
	return stats.RenderGroups(out, groups, stats.TerminalWidth(out))
}

func newPlayerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "player <id>",
		Short: "Show one player's best score",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlayerCmd,
	}
}

func runPlayerCmd(cmd *cobra.Command, args []string) error {
	id, err := player.NormalizeID(args[0])
	if err != nil {
		return err
	}
	be, err := openRecordsBackend(cmd)
	if err != nil {
		return err
	}
	defer be.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()
	p, err := be.Gateway.GetPlayer(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load player: %w", err)
	}
	updated := "never"
	if !p.UpdatedAt.IsZero() {
		updated = p.UpdatedAt.Local().Format("2006-01-02 15:04")
	}
	lines := []string{
		fmt.Sprintf("ID:      %s", p.ID),
		fmt.Sprintf("Name:    %s", p.Name),
		fmt.Sprintf("Group:   %s", player.GroupOf(p.ID)),
		fmt.Sprintf("Best:    %d", p.BestScore),
		fmt.Sprintf("Updated: %s", updated),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a player's round history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsID, "id", "", "5-digit player id (default: last login)")
	cmd.Flags().IntVar(&statsLast, "last", defaultStatsLast, "number of recent rounds")
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "id", &statsID, fileCfg.Play.PlayerID)
	if statsID == "" {
		statsID = lastLogin()
	}
	if statsWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}
	id, err := player.NormalizeID(statsID)
	if err != nil {
		return fmt.Errorf("--id: %w", err)
	}
	be, err := openRecordsBackend(cmd)
	if err != nil {
		return err
	}
	defer be.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()
	report, err := stats.BuildReport(ctx, be.Gateway, id, statsLast)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Player, report.Rounds); err != nil {
		return err
	}
	return stats.RenderHistory(out, report.Rounds, statsWindow)
}

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the leaderboard and admin dashboard",
		Args:  cobra.NoArgs,
		RunE:  runBoardCmd,
	}
	cmd.Flags().StringVar(&boardGroup, "group", "", "initial 3-digit group filter")
	cmd.Flags().IntVar(&boardLimit, "limit", records.DefaultLimit, "number of players")
	cmd.Flags().StringVar(&adminToken, "token", "", "admin token (prompted when needed)")
	return cmd
}

func runBoardCmd(cmd *cobra.Command, _ []string) error {
	if boardGroup != "" {
		if err := player.ValidateGroup(boardGroup); err != nil {
			return err
		}
	}
	be, err := openRecordsBackend(cmd)
	if err != nil {
		return err
	}
	defer be.Close()
	logger, logCloser, err := logging.OpenFile(config.DefaultLogPath(), globalLogLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logCloser.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	token := adminToken
	if token == "" {
		token = config.GetEnv(envAdminToken, "")
	}
	m := boardui.NewModel(boardui.Options{
		Gateway: be.Gateway,
		Admin:   be.Admin,
		Live:    be.Live,
		Logger:  logger,
		Token:   token,
		Group:   boardGroup,
		Limit:   boardLimit,
	})
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run board TUI: %w", err)
	}
	return nil
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Bulk record maintenance",
	}
	cmd.PersistentFlags().StringVar(&adminToken, "token", "", "admin token (default: $"+envAdminToken+")")
	cmd.PersistentFlags().StringVar(&adminMode, "mode", string(model.ClearReset), "reset (zero best scores) or delete (remove players)")

	clearGroup := &cobra.Command{
		Use:   "clear-group <group>",
		Short: "Clear every player in a 3-digit group",
		Args:  cobra.ExactArgs(1),
		RunE:  runClearGroupCmd,
	}
	clearAll := &cobra.Command{
		Use:   "clear-all",
		Short: "Clear every player",
		Args:  cobra.NoArgs,
		RunE:  runClearAllCmd,
	}
	clearAll.Flags().BoolVar(&adminYes, "yes", false, "confirm clearing every player")
	cmd.AddCommand(clearGroup, clearAll)
	return cmd
}

func runClearGroupCmd(cmd *cobra.Command, args []string) error {
	return runClear(cmd, args[0])
}

func runClearAllCmd(cmd *cobra.Command, _ []string) error {
	if !adminYes {
		return fmt.Errorf("refusing to clear every player without --yes")
	}
	return runClear(cmd, "")
}

func runClear(cmd *cobra.Command, group string) error {
	mode, err := records.ParseClearMode(adminMode)
	if err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "server", &globalServer, fileCfg.Play.Server)
	applyStringConfig(cmd, "db", &globalDB, fileCfg.Server.DB)
	applyEnv(cmd, "db", envDB, &globalDB)
	token := resolveAdminToken(fileCfg, adminToken)

	// Locally the configured token is both the secret and the credential.
	be, err := openBackend(globalServer, globalDB, token)
	if err != nil {
		return err
	}
	defer be.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()

	var n int64
	if group == "" {
		n, err = be.Admin.ClearAll(ctx, token, mode)
	} else {
		n, err = be.Admin.ClearGroup(ctx, token, group, mode)
	}
	switch {
	case errors.Is(err, records.ErrAdminDisabled):
		return fmt.Errorf("%w (set %s or [server] admin-token)", err, envAdminToken)
	case err != nil:
		return err
	}
	target := "all players"
	if group != "" {
		target = "group " + group
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d players affected\n", mode, target, n)
	return err
}

// openRecordsBackend resolves --server and --db from flags, environment and
// config for the read-only record commands.
func openRecordsBackend(cmd *cobra.Command) (*backend, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "server", &globalServer, fileCfg.Play.Server)
	applyStringConfig(cmd, "db", &globalDB, fileCfg.Server.DB)
	applyEnv(cmd, "db", envDB, &globalDB)
	return openBackend(globalServer, globalDB, resolveAdminToken(fileCfg, ""))
}

// lastLogin returns the player id remembered by the game, if any.
func lastLogin() string {
	prof, err := profile.Open(profile.AppName)
	if err != nil {
		return ""
	}
	saved, ok, err := prof.Load()
	if err != nil || !ok {
		return ""
	}
	return saved.PlayerID
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prof, err := profile.Open(profile.AppName)
			if err != nil {
				return fmt.Errorf("failed to open profile: %w", err)
			}
			if err := prof.Forget(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Forgot the remembered player.")
			return err
		},
	}
}
