package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "tuimeteor.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	clock := time.Unix(0, 0).UTC()
	st.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return st
}

func TestRaiseBestScoreKeepsMaximum(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	p, raised, err := st.RaiseBestScore(ctx, "12345", 40)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if !raised || p.BestScore != 40 {
		t.Fatalf("expected raise to 40, got %d (raised=%v)", p.BestScore, raised)
	}
	p, raised, err = st.RaiseBestScore(ctx, "12345", 25)
	if err != nil {
		t.Fatalf("raise lower: %v", err)
	}
	if raised || p.BestScore != 40 {
		t.Fatalf("lower score must not replace best, got %d (raised=%v)", p.BestScore, raised)
	}
	p, _, err = st.RaiseBestScore(ctx, "12345", 55)
	if err != nil {
		t.Fatalf("raise higher: %v", err)
	}
	if p.BestScore != 55 {
		t.Fatalf("expected 55, got %d", p.BestScore)
	}
}

func TestUpsertPlayerKeepsScore(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, _, err := st.RaiseBestScore(ctx, "10001", 12); err != nil {
		t.Fatalf("raise: %v", err)
	}
	p, err := st.UpsertPlayer(ctx, "10001", "Mei")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.Name != "Mei" || p.BestScore != 12 {
		t.Fatalf("unexpected player %+v", p)
	}
	p, err = st.UpsertPlayer(ctx, "10001", "")
	if err != nil {
		t.Fatalf("upsert empty name: %v", err)
	}
	if p.Name != "Mei" {
		t.Fatalf("empty name must not overwrite, got %q", p.Name)
	}
}

func TestGetPlayerUnknown(t *testing.T) {
	st := openTestStore(t)
	p, err := st.GetPlayer(context.Background(), "99999")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.ID != "99999" || p.BestScore != 0 {
		t.Fatalf("unexpected player %+v", p)
	}
}

func TestLeaderboardOrderAndPrefix(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	scores := []struct {
		id    string
		score int
	}{
		{"10101", 30},
		{"10102", 50},
		{"20201", 30},
		{"10103", 10},
	}
	for _, s := range scores {
		if _, _, err := st.RaiseBestScore(ctx, s.id, s.score); err != nil {
			t.Fatalf("raise %s: %v", s.id, err)
		}
	}

	all, err := st.Leaderboard(ctx, 10, "")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []string{"10102", "10101", "20201", "10103"}
	if len(all) != len(want) {
		t.Fatalf("expected %d players, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}

	top, err := st.Leaderboard(ctx, 2, "101")
	if err != nil {
		t.Fatalf("leaderboard group: %v", err)
	}
	if len(top) != 2 || top[0].ID != "10102" || top[1].ID != "10101" {
		t.Fatalf("unexpected group leaderboard %+v", top)
	}
}

func TestGroups(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for id, score := range map[string]int{"10101": 30, "10102": 50, "20201": 7} {
		if _, _, err := st.RaiseBestScore(ctx, id, score); err != nil {
			t.Fatalf("raise %s: %v", id, err)
		}
	}
	groups, err := st.Groups(ctx, 3)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	first := groups[0]
	if first.Group != "101" || first.MemberCount != 2 || first.TopScore != 50 || first.AverageScore != 40 {
		t.Fatalf("unexpected group %+v", first)
	}
	if groups[1].Group != "202" || groups[1].TopScore != 7 {
		t.Fatalf("unexpected group %+v", groups[1])
	}
}

func TestRoundsNewestFirst(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1000, 0)
	for i := 0; i < 3; i++ {
		rec := model.RoundRecord{
			ID:         string(rune('a' + i)),
			PlayerID:   "12345",
			Level:      i + 1,
			Correct:    10 + i,
			Wrong:      1,
			Score:      20 + i,
			Accuracy:   0.9,
			PerMinute:  10,
			Passed:     true,
			DurationMs: 60000,
			EndedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.InsertRound(ctx, rec); err != nil {
			t.Fatalf("insert round: %v", err)
		}
	}
	rounds, err := st.ListRounds(ctx, "12345", 2)
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(rounds))
	}
	if rounds[0].Level != 3 || rounds[1].Level != 2 {
		t.Fatalf("expected newest first, got levels %d,%d", rounds[0].Level, rounds[1].Level)
	}
	if !rounds[0].Passed || rounds[0].Score != 22 {
		t.Fatalf("unexpected round %+v", rounds[0])
	}
}

func TestClearPrefix(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for id, score := range map[string]int{"10101": 30, "10102": 50, "20201": 7} {
		if _, _, err := st.RaiseBestScore(ctx, id, score); err != nil {
			t.Fatalf("raise %s: %v", id, err)
		}
	}

	n, err := st.ClearPrefix(ctx, "101", model.ClearReset)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 reset, got %d", n)
	}
	p, err := st.GetPlayer(ctx, "10102")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.BestScore != 0 {
		t.Fatalf("expected reset score, got %d", p.BestScore)
	}
	other, err := st.GetPlayer(ctx, "20201")
	if err != nil {
		t.Fatalf("get other: %v", err)
	}
	if other.BestScore != 7 {
		t.Fatalf("other group must be untouched, got %d", other.BestScore)
	}

	n, err = st.ClearPrefix(ctx, "", model.ClearDelete)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
	players, err := st.Leaderboard(ctx, 10, "")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(players) != 0 {
		t.Fatalf("expected empty leaderboard, got %d", len(players))
	}
}
