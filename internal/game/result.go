package game

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

// RoundResult is computed when a round times out. Counters are the values
// at the moment the round ended.
type RoundResult struct {
	PlayerID      string
	Level         int
	NextLevel     int
	LevelUp       bool
	Correct       int
	Wrong         int
	Score         int
	Accuracy      float64
	PerMinute     float64
	Passed        bool
	Elapsed       time.Duration
	BestCandidate int
}

// Record converts the result into a history row.
func (r RoundResult) Record(endedAt time.Time) model.RoundRecord {
	return model.RoundRecord{
		PlayerID:   r.PlayerID,
		Level:      r.Level,
		Correct:    r.Correct,
		Wrong:      r.Wrong,
		Score:      r.Score,
		Accuracy:   r.Accuracy,
		PerMinute:  r.PerMinute,
		Passed:     r.Passed,
		DurationMs: r.Elapsed.Milliseconds(),
		EndedAt:    endedAt,
	}
}

// Sink receives finished rounds.
type Sink interface {
	RaiseBestScore(ctx context.Context, id string, score int) (model.Player, error)
	RecordRound(ctx context.Context, r model.RoundRecord) error
}

// Persist submits the best-score candidate, then the history row. The
// returned player reflects the stored best; a history failure is reported
// after a successful raise.
func Persist(ctx context.Context, sink Sink, r RoundResult, endedAt time.Time) (model.Player, error) {
	p, err := sink.RaiseBestScore(ctx, r.PlayerID, r.BestCandidate)
	if err != nil {
		return model.Player{}, fmt.Errorf("failed to sync best score: %w", err)
	}
	if err := sink.RecordRound(ctx, r.Record(endedAt)); err != nil {
		return p, fmt.Errorf("failed to record round: %w", err)
	}
	return p, nil
}
