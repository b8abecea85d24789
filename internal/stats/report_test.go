package stats

import (
	"context"
	"testing"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

type fakeHistory struct {
	player model.Player
	rounds []model.RoundRecord
}

func (f fakeHistory) GetPlayer(context.Context, string) (model.Player, error) {
	return f.player, nil
}

func (f fakeHistory) ListRounds(_ context.Context, _ string, limit int) ([]model.RoundRecord, error) {
	if limit > 0 && limit < len(f.rounds) {
		return f.rounds[:limit], nil
	}
	return f.rounds, nil
}

func TestBuildReportOrdersOldestFirst(t *testing.T) {
	src := fakeHistory{
		player: model.Player{ID: "30101", BestScore: 9},
		rounds: []model.RoundRecord{
			{ID: "c", Level: 3},
			{ID: "b", Level: 2},
			{ID: "a", Level: 1},
		},
	}
	report, err := BuildReport(context.Background(), src, "30101", 2)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.Player.BestScore != 9 {
		t.Fatalf("unexpected player: %+v", report.Player)
	}
	if len(report.Rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(report.Rounds))
	}
	if report.Rounds[0].ID != "b" || report.Rounds[1].ID != "c" {
		t.Fatalf("unexpected order: %+v", report.Rounds)
	}
}
