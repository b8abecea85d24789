package main

import (
	"fmt"

	"github.com/verte-zerg/tuimeteor/internal/boardui"
	"github.com/verte-zerg/tuimeteor/internal/client"
	"github.com/verte-zerg/tuimeteor/internal/config"
	"github.com/verte-zerg/tuimeteor/internal/records"
	"github.com/verte-zerg/tuimeteor/internal/store"
)

const (
	envAdminToken = "TUIMETEOR_ADMIN_TOKEN"
	envAddr       = "TUIMETEOR_ADDR"
	envDB         = "TUIMETEOR_DB"
)

// backend is either the local sqlite service or a remote record service.
type backend struct {
	Gateway records.Gateway
	Admin   records.Admin
	Live    boardui.LiveFunc
	st      *store.Store
}

// openBackend talks to serverURL when set and opens dbPath otherwise.
func openBackend(serverURL, dbPath, adminToken string) (*backend, error) {
	if serverURL != "" {
		c, err := client.New(serverURL, defaultTimeout)
		if err != nil {
			return nil, err
		}
		return &backend{Gateway: c, Admin: c, Live: c.Watch}, nil
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	svc := records.NewService(st, adminToken)
	return &backend{Gateway: svc, Admin: svc, st: st}, nil
}

// Remote reports whether records live on a server.
func (b *backend) Remote() bool {
	return b.st == nil
}

func (b *backend) Close() {
	if b.st == nil {
		return
	}
	if cerr := b.st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

// resolveAdminToken picks the flag value, then the environment, then the
// config file.
func resolveAdminToken(fileCfg config.FileConfig, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	fallback := ""
	if fileCfg.Server.AdminToken != nil {
		fallback = *fileCfg.Server.AdminToken
	}
	return config.GetEnv(envAdminToken, fallback)
}
