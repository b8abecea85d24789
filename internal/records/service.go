package records

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/verte-zerg/tuimeteor/internal/model"
	"github.com/verte-zerg/tuimeteor/internal/player"
)

// Store is the persistence the service validates in front of.
type Store interface {
	UpsertPlayer(ctx context.Context, id, name string) (model.Player, error)
	RaiseBestScore(ctx context.Context, id string, score int) (model.Player, bool, error)
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	Leaderboard(ctx context.Context, limit int, prefix string) ([]model.Player, error)
	Groups(ctx context.Context, prefixLen int) ([]model.GroupSummary, error)
	InsertRound(ctx context.Context, r model.RoundRecord) error
	ListRounds(ctx context.Context, playerID string, limit int) ([]model.RoundRecord, error)
	ClearPrefix(ctx context.Context, prefix string, mode model.ClearMode) (int64, error)
}

// Service implements Gateway and Admin on top of a Store.
type Service struct {
	store      Store
	adminToken string
	now        func() time.Time
}

// NewService wraps a store. An empty admin token disables admin operations.
func NewService(store Store, adminToken string) *Service {
	return &Service{store: store, adminToken: adminToken, now: time.Now}
}

// UpsertPlayer validates the id and creates or renames the player.
func (s *Service) UpsertPlayer(ctx context.Context, id, name string) (model.Player, error) {
	if err := player.ValidateID(id); err != nil {
		return model.Player{}, invalid(err)
	}
	p, err := s.store.UpsertPlayer(ctx, id, player.NormalizeName(name))
	if err != nil {
		return model.Player{}, unavailable("upsert player", err)
	}
	return p, nil
}

// RaiseBestScore applies best = max(best, score).
func (s *Service) RaiseBestScore(ctx context.Context, id string, score int) (model.Player, error) {
	p, _, err := s.RaiseBestScoreChanged(ctx, id, score)
	return p, err
}

// RaiseBestScoreChanged is RaiseBestScore that also reports whether the best moved.
func (s *Service) RaiseBestScoreChanged(ctx context.Context, id string, score int) (model.Player, bool, error) {
	if err := player.ValidateID(id); err != nil {
		return model.Player{}, false, invalid(err)
	}
	if score < 0 {
		return model.Player{}, false, invalid(fmt.Errorf("score must be non-negative, got %d", score))
	}
	p, changed, err := s.store.RaiseBestScore(ctx, id, score)
	if err != nil {
		return model.Player{}, false, unavailable("raise best score", err)
	}
	return p, changed, nil
}

// GetPlayer returns the player record, zero-scored when unknown.
func (s *Service) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	if err := player.ValidateID(id); err != nil {
		return model.Player{}, invalid(err)
	}
	p, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		return model.Player{}, unavailable("get player", err)
	}
	return p, nil
}

// Leaderboard returns the top players, optionally within one group.
func (s *Service) Leaderboard(ctx context.Context, limit int, group string) ([]model.Player, error) {
	if group != "" {
		if err := player.ValidateGroup(group); err != nil {
			return nil, invalid(err)
		}
	}
	players, err := s.store.Leaderboard(ctx, ClampLimit(limit), group)
	if err != nil {
		return nil, unavailable("load leaderboard", err)
	}
	return players, nil
}

// Groups aggregates players by group prefix.
func (s *Service) Groups(ctx context.Context) ([]model.GroupSummary, error) {
	groups, err := s.store.Groups(ctx, player.GroupLength)
	if err != nil {
		return nil, unavailable("load groups", err)
	}
	return groups, nil
}

// RecordRound stores a finished round, assigning an id and end time if unset.
func (s *Service) RecordRound(ctx context.Context, r model.RoundRecord) error {
	if err := player.ValidateID(r.PlayerID); err != nil {
		return invalid(err)
	}
	if r.Level < 1 || r.Correct < 0 || r.Wrong < 0 || r.Score < 0 || r.DurationMs < 0 {
		return invalid(errors.New("round fields out of range"))
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.EndedAt.IsZero() {
		r.EndedAt = s.now()
	}
	if err := s.store.InsertRound(ctx, r); err != nil {
		return unavailable("record round", err)
	}
	return nil
}

// ListRounds returns a player's latest rounds, newest first.
func (s *Service) ListRounds(ctx context.Context, id string, limit int) ([]model.RoundRecord, error) {
	if err := player.ValidateID(id); err != nil {
		return nil, invalid(err)
	}
	rounds, err := s.store.ListRounds(ctx, id, ClampLimit(limit))
	if err != nil {
		return nil, unavailable("list rounds", err)
	}
	return rounds, nil
}

// ClearGroup resets or deletes every player in a group.
func (s *Service) ClearGroup(ctx context.Context, token, group string, mode model.ClearMode) (int64, error) {
	if err := s.authorize(token); err != nil {
		return 0, err
	}
	if err := player.ValidateGroup(group); err != nil {
		return 0, invalid(err)
	}
	mode, err := ParseClearMode(string(mode))
	if err != nil {
		return 0, err
	}
	n, err := s.store.ClearPrefix(ctx, group, mode)
	if err != nil {
		return 0, unavailable("clear group", err)
	}
	return n, nil
}

// ClearAll resets or deletes every player.
func (s *Service) ClearAll(ctx context.Context, token string, mode model.ClearMode) (int64, error) {
	if err := s.authorize(token); err != nil {
		return 0, err
	}
	mode, err := ParseClearMode(string(mode))
	if err != nil {
		return 0, err
	}
	n, err := s.store.ClearPrefix(ctx, "", mode)
	if err != nil {
		return 0, unavailable("clear all", err)
	}
	return n, nil
}

func (s *Service) authorize(token string) error {
	if s.adminToken == "" {
		return ErrAdminDisabled
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrUnavailable, err)
}
