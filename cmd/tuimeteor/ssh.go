package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	bm "github.com/charmbracelet/wish/bubbletea"
	wishlogging "github.com/charmbracelet/wish/logging"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuimeteor/internal/config"
	"github.com/verte-zerg/tuimeteor/internal/game"
	"github.com/verte-zerg/tuimeteor/internal/glyph"
	"github.com/verte-zerg/tuimeteor/internal/player"
	"github.com/verte-zerg/tuimeteor/internal/records"
	"github.com/verte-zerg/tuimeteor/internal/sound"
	"github.com/verte-zerg/tuimeteor/internal/tui"
)

var (
	sshAddr    string
	sshHostKey string
)

func newSSHCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Host the game over SSH",
		Args:  cobra.NoArgs,
		RunE:  runSSHCmd,
	}
	cmd.Flags().StringVar(&sshAddr, "addr", defaultSSHAddr, "listen address")
	cmd.Flags().StringVar(&sshHostKey, "host-key", config.DefaultHostKeyPath(), "host key path (generated when missing)")
	addPlayFlags(cmd)
	return cmd
}

func runSSHCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyPlayConfig(cmd, fileCfg)
	applyStringConfig(cmd, "addr", &sshAddr, fileCfg.SSH.Addr)
	applyStringConfig(cmd, "host-key", &sshHostKey, fileCfg.SSH.HostKey)
	applyEnv(cmd, "db", envDB, &globalDB)
	cfg := playConfig()
	levels, err := fileCfg.LevelTable()
	if err != nil {
		return err
	}
	sessCfg, keymap, err := buildSessionConfig(cfg, levels)
	if err != nil {
		return err
	}
	if _, err := game.NewSession(sessCfg); err != nil {
		return err
	}

	logger, err := newStderrLogger()
	if err != nil {
		return err
	}
	be, err := openBackend(cfg.Server, globalDB, "")
	if err != nil {
		return err
	}
	defer be.Close()

	if err := os.MkdirAll(filepath.Dir(sshHostKey), 0o700); err != nil {
		return fmt.Errorf("failed to create host key dir: %w", err)
	}
	s, err := wish.NewServer(
		wish.WithAddress(sshAddr),
		wish.WithHostKeyPath(sshHostKey),
		wish.WithMiddleware(
			bm.Middleware(gameHandler(sessCfg, keymap, be.Gateway, logger)),
			activeterm.Middleware(),
			wishlogging.Middleware(),
		),
		ssh.WrapConn(func(_ ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create ssh server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()
	logger.Info("ssh game server listening", "addr", sshAddr, "records", describeRecords(be, cfg.Server))

	select {
	case err := <-errCh:
		if errors.Is(err, ssh.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down ssh game server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return fmt.Errorf("failed to shut down ssh server: %w", err)
	}
	return nil
}

// gameHandler gives every SSH session its own game with a fresh seed. A user
// name that is a valid player id prefills the login form.
func gameHandler(base game.Config, keymap glyph.KeyMap, gw records.Gateway, logger *log.Logger) bm.Handler {
	return func(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
		cfg := base
		cfg.Seed = time.Now().UnixNano()
		session, err := game.NewSession(cfg)
		if err != nil {
			logger.Error("failed to create session", "user", sess.User(), "err", err)
			return nil, nil
		}
		id := ""
		if player.ValidateID(sess.User()) == nil {
			id = sess.User()
		}
		m := tui.NewModel(tui.Options{
			Session:  session,
			Gateway:  gw,
			KeyMap:   keymap,
			Sound:    sound.Nop{},
			Logger:   logger.With("remote", sess.RemoteAddr().String()),
			PlayerID: id,
		})
		go func() {
			<-sess.Context().Done()
			m.Close()
		}()
		return m, []tea.ProgramOption{tea.WithAltScreen()}
	}
}

func describeRecords(be *backend, serverURL string) string {
	if be.Remote() {
		return serverURL
	}
	return globalDB
}
