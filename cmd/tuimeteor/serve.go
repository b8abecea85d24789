package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuimeteor/internal/config"
	"github.com/verte-zerg/tuimeteor/internal/records"
	"github.com/verte-zerg/tuimeteor/internal/server"
	"github.com/verte-zerg/tuimeteor/internal/store"
)

var (
	serveAddr  string
	serveToken string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP record service",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&serveToken, "admin-token", "", "shared admin token (empty disables admin routes)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "db", &globalDB, fileCfg.Server.DB)
	applyEnv(cmd, "addr", envAddr, &serveAddr)
	applyEnv(cmd, "db", envDB, &globalDB)
	token := resolveAdminToken(fileCfg, serveToken)

	logger, err := newStderrLogger()
	if err != nil {
		return err
	}
	st, err := store.Open(globalDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close db", "err", cerr)
		}
	}()
	if token == "" {
		logger.Warn("no admin token configured, admin routes are disabled")
	}

	srv := server.New(records.NewService(st, token), logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("opening record store", "db", globalDB)
	return srv.ListenAndServe(ctx, serveAddr)
}
