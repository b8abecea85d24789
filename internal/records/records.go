// Package records defines the player record gateway and its local implementation.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

const (
	// DefaultLimit is the leaderboard size when none is requested.
	DefaultLimit = 10
	// MaxLimit caps leaderboard and history sizes.
	MaxLimit = 100
)

var (
	// ErrValidation marks malformed ids, groups, scores or modes.
	ErrValidation = errors.New("invalid request")
	// ErrUnauthorized marks a missing or wrong admin token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAdminDisabled marks admin calls against a service with no token configured.
	ErrAdminDisabled = errors.New("admin operations disabled")
	// ErrUnavailable marks transient storage or transport failures.
	ErrUnavailable = errors.New("record store unavailable")
)

// Gateway is the player record contract used by the game and the CLI.
type Gateway interface {
	UpsertPlayer(ctx context.Context, id, name string) (model.Player, error)
	RaiseBestScore(ctx context.Context, id string, score int) (model.Player, error)
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	Leaderboard(ctx context.Context, limit int, group string) ([]model.Player, error)
	Groups(ctx context.Context) ([]model.GroupSummary, error)
	RecordRound(ctx context.Context, r model.RoundRecord) error
	ListRounds(ctx context.Context, id string, limit int) ([]model.RoundRecord, error)
}

// Admin holds the privileged bulk operations. Both return the number of
// affected players.
type Admin interface {
	ClearGroup(ctx context.Context, token, group string, mode model.ClearMode) (int64, error)
	ClearAll(ctx context.Context, token string, mode model.ClearMode) (int64, error)
}

// ParseClearMode validates a clear mode; empty means reset.
func ParseClearMode(raw string) (model.ClearMode, error) {
	switch model.ClearMode(raw) {
	case "", model.ClearReset:
		return model.ClearReset, nil
	case model.ClearDelete:
		return model.ClearDelete, nil
	default:
		return "", fmt.Errorf("%w: mode must be reset or delete, got %q", ErrValidation, raw)
	}
}

// ClampLimit applies the default and the upper bound to a requested size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
