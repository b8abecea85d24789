// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

// HistorySource provides a player's record and recent rounds.
type HistorySource interface {
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	ListRounds(ctx context.Context, id string, limit int) ([]model.RoundRecord, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Player model.Player
	Rounds []model.RoundRecord
}

// BuildReport loads a player's record and the last rounds, oldest first.
func BuildReport(ctx context.Context, src HistorySource, id string, last int) (Report, error) {
	p, err := src.GetPlayer(ctx, id)
	if err != nil {
		return Report{}, err
	}
	rounds, err := src.ListRounds(ctx, id, last)
	if err != nil {
		return Report{}, err
	}
	ordered := make([]model.RoundRecord, len(rounds))
	for i, r := range rounds {
		ordered[len(rounds)-1-i] = r
	}
	return Report{Player: p, Rounds: ordered}, nil
}
