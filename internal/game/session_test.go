package game

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/verte-zerg/tuimeteor/internal/field"
	"github.com/verte-zerg/tuimeteor/internal/level"
	"github.com/verte-zerg/tuimeteor/internal/model"
)

const frame = 100 * time.Millisecond

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.Alphabet == nil {
		cfg.Alphabet = []string{"ㄅ"}
	}
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.SetPlayer("12345", "Mei"); err != nil {
		t.Fatalf("set player: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

// spawnNext ticks until an entity appears and returns it.
func spawnNext(t *testing.T, s *Session) field.Entity {
	t.Helper()
	for i := 0; i < 10000; i++ {
		m := s.MotionTick(frame)
		if m.Reaped > 0 {
			t.Fatalf("unexpected reap while waiting for spawn")
		}
		if m.Spawned {
			return m.Entity
		}
	}
	t.Fatalf("no spawn after 10000 ticks")
	return field.Entity{}
}

func runOutClock(t *testing.T, s *Session) RoundResult {
	t.Helper()
	for i := 0; i < 10000; i++ {
		if r, done := s.CountdownTick(); done {
			return r
		}
	}
	t.Fatalf("round never ended")
	return RoundResult{}
}

func TestStartRequiresPlayer(t *testing.T) {
	s, err := NewSession(Config{Alphabet: []string{"ㄅ"}})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrNoPlayer) {
		t.Fatalf("expected ErrNoPlayer, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle, got %s", s.State())
	}
	if sub := s.SubmitGlyph("ㄅ"); sub.Outcome != OutcomeIgnored {
		t.Fatalf("expected input ignored while idle")
	}
	if err := s.SetPlayer("1234", ""); err == nil {
		t.Fatalf("expected invalid id to be rejected")
	}
}

func TestFullRoundHitsEverything(t *testing.T) {
	s := newTestSession(t, Config{Levels: level.Default})

	spawned := 0
	var result RoundResult
	ended := false
	for sec := 0; sec < 60 && !ended; sec++ {
		for f := 0; f < 10; f++ {
			m := s.MotionTick(frame)
			if m.Reaped > 0 {
				t.Fatalf("unexpected reap at second %d", sec)
			}
			if m.Spawned {
				spawned++
				if sub := s.SubmitGlyph(m.Entity.Label); sub.Outcome != OutcomeHit {
					t.Fatalf("expected hit, got %v", sub.Outcome)
				}
			}
		}
		result, ended = s.CountdownTick()
	}
	if !ended {
		t.Fatalf("round did not end after 60 seconds")
	}
	if spawned != 10 {
		t.Fatalf("expected 10 spawns, got %d", spawned)
	}
	if result.Correct != 10 || result.Wrong != 0 || result.Accuracy != 1.0 || !result.Passed {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Score != 30 || result.BestCandidate != 30 {
		t.Fatalf("expected score 30 from fast hits, got %d (candidate %d)", result.Score, result.BestCandidate)
	}
	if !result.LevelUp || s.Level() != 2 || result.NextLevel != 2 {
		t.Fatalf("expected level 2, got %d", s.Level())
	}
	if s.Score() != 30 {
		t.Fatalf("score must carry forward, got %d", s.Score())
	}
	if s.Correct() != 0 || s.Wrong() != 0 || len(s.Entities()) != 0 {
		t.Fatalf("round counters must reset")
	}
	if s.TimeLeft() != 60 {
		t.Fatalf("expected time reset to 60, got %d", s.TimeLeft())
	}
	if s.State() != StateRoundComplete {
		t.Fatalf("expected round complete, got %s", s.State())
	}

	sink := &fakeSink{}
	p, err := Persist(context.Background(), sink, result, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(sink.raised) != 1 || sink.raised[0] != 30 || p.BestScore != 30 {
		t.Fatalf("expected best-score request with 30, got %v", sink.raised)
	}
	if len(sink.rounds) != 1 || sink.rounds[0].Level != 1 || sink.rounds[0].DurationMs != 60000 {
		t.Fatalf("unexpected recorded round %+v", sink.rounds)
	}
}

func TestExactlyEightyPercentPasses(t *testing.T) {
	s := newTestSession(t, Config{Levels: level.Table{{SpawnRatePerMinute: 60, RoundDuration: 30}, {SpawnRatePerMinute: 60, RoundDuration: 30}}})
	for i := 0; i < 8; i++ {
		e := spawnNext(t, s)
		s.SubmitGlyph(e.Label)
	}
	s.SubmitGlyph("ㄆ")
	s.SubmitGlyph("ㄆ")
	r := runOutClock(t, s)
	if r.Correct != 8 || r.Wrong != 2 {
		t.Fatalf("unexpected counters %+v", r)
	}
	if r.Accuracy != 0.8 || !r.Passed {
		t.Fatalf("expected accuracy 0.8 to pass, got %v (passed=%v)", r.Accuracy, r.Passed)
	}
	if s.Level() != 2 {
		t.Fatalf("expected level 2, got %d", s.Level())
	}
}

func TestFailedRoundKeepsLevel(t *testing.T) {
	s := newTestSession(t, Config{Levels: level.Default})
	s.SubmitGlyph("ㄆ")
	r := runOutClock(t, s)
	if r.Passed || r.LevelUp {
		t.Fatalf("expected failed round, got %+v", r)
	}
	if s.Level() != 1 {
		t.Fatalf("expected level 1, got %d", s.Level())
	}
	if s.Correct() != 0 || s.Wrong() != 0 {
		t.Fatalf("counters must reset after a failed round")
	}

	empty := runAfterStart(t, s)
	if empty.Accuracy != 0 || empty.Passed {
		t.Fatalf("a round with no input must fail, got %+v", empty)
	}
}

func runAfterStart(t *testing.T, s *Session) RoundResult {
	t.Helper()
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return runOutClock(t, s)
}

func TestLastLevelClamps(t *testing.T) {
	s := newTestSession(t, Config{Levels: level.Table{{SpawnRatePerMinute: 60, RoundDuration: 5}}})
	e := spawnNext(t, s)
	s.SubmitGlyph(e.Label)
	r := runOutClock(t, s)
	if !r.Passed {
		t.Fatalf("expected pass")
	}
	if r.LevelUp || s.Level() != 1 {
		t.Fatalf("level must not pass the end of the table, got %d", s.Level())
	}
}

func TestReapPenaltyAppliedOnce(t *testing.T) {
	s := newTestSession(t, Config{Levels: level.Table{{SpawnRatePerMinute: 1, RoundDuration: 600}}})
	first := spawnNext(t, s)
	if sub := s.SubmitGlyph(first.Label); sub.Outcome != OutcomeHit || sub.Points != 3 {
		t.Fatalf("expected fast hit, got %+v", sub)
	}
	spawnNext(t, s)
	reaped := 0
	for i := 0; i < 200; i++ {
		reaped += s.MotionTick(frame).Reaped
	}
	if reaped != 1 {
		t.Fatalf("expected one reap, got %d", reaped)
	}
	if s.Wrong() != 1 || s.Score() != 2 {
		t.Fatalf("expected wrong=1 score=2, got wrong=%d score=%d", s.Wrong(), s.Score())
	}
}

func TestScoreNeverNegative(t *testing.T) {
	s := newTestSession(t, Config{
		Alphabet: []string{"ㄅ", "ㄆ", "ㄇ"},
		Levels:   level.Table{{SpawnRatePerMinute: 200, RoundDuration: 1000}},
		Seed:     7,
	})
	rnd := rand.New(rand.NewSource(42))
	labels := []string{"ㄅ", "ㄆ", "ㄇ", "ㄈ"}
	for i := 0; i < 5000; i++ {
		switch rnd.Intn(3) {
		case 0:
			s.SubmitGlyph(labels[rnd.Intn(len(labels))])
		case 1:
			s.MotionTick(time.Duration(rnd.Intn(200)) * time.Millisecond)
		default:
			if _, done := s.CountdownTick(); done {
				if err := s.Start(); err != nil {
					t.Fatalf("start next round: %v", err)
				}
			}
		}
		if s.Score() < 0 {
			t.Fatalf("score went negative at step %d", i)
		}
	}
}

func TestPauseFreezesTicks(t *testing.T) {
	s := newTestSession(t, Config{Levels: level.Table{{SpawnRatePerMinute: 60, RoundDuration: 60}}})
	spawnNext(t, s)
	before := s.Entities()
	clock := s.Clock()
	s.Pause()
	s.Pause()
	if s.State() != StatePaused {
		t.Fatalf("expected paused, got %s", s.State())
	}
	if m := s.MotionTick(frame); m.Spawned || m.Reaped != 0 {
		t.Fatalf("motion tick must be ignored while paused")
	}
	if _, done := s.CountdownTick(); done {
		t.Fatalf("countdown must be ignored while paused")
	}
	if s.TimeLeft() != 60 || s.Clock() != clock {
		t.Fatalf("time moved while paused")
	}
	if sub := s.SubmitGlyph("ㄅ"); sub.Outcome != OutcomeIgnored {
		t.Fatalf("input must be ignored while paused")
	}
	after := s.Entities()
	if len(after) != len(before) || after[0].Y != before[0].Y {
		t.Fatalf("entities moved while paused")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	s.CountdownTick()
	if s.TimeLeft() != 59 {
		t.Fatalf("expected one second consumed after resume, got %d", s.TimeLeft())
	}
}

func TestAutoContinue(t *testing.T) {
	s := newTestSession(t, Config{Levels: level.Default, AutoContinue: true})
	runOutClock(t, s)
	if s.State() != StateRunning {
		t.Fatalf("expected running after auto-continue, got %s", s.State())
	}
	if r, ok := s.LastResult(); !ok || r.Level != 1 {
		t.Fatalf("expected last result for level 1")
	}
}

func TestRestartResets(t *testing.T) {
	s := newTestSession(t, Config{Levels: level.Default})
	for i := 0; i < 3; i++ {
		e := spawnNext(t, s)
		s.SubmitGlyph(e.Label)
	}
	runOutClock(t, s)
	if s.Level() != 2 || s.Score() == 0 {
		t.Fatalf("expected progress before restart")
	}
	if err := s.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.Level() != 1 || s.Score() != 0 || s.Correct() != 0 || s.Wrong() != 0 || len(s.Entities()) != 0 {
		t.Fatalf("restart must reset the session")
	}
	if s.TimeLeft() != 60 || s.State() != StateRunning {
		t.Fatalf("unexpected state after restart: %s, %ds", s.State(), s.TimeLeft())
	}
}

func TestScoringTiers(t *testing.T) {
	cases := []struct {
		reaction time.Duration
		want     int
	}{
		{0, 3},
		{1500 * time.Millisecond, 3},
		{1501 * time.Millisecond, 2},
		{2500 * time.Millisecond, 2},
		{4 * time.Second, 1},
	}
	for _, tc := range cases {
		if got := ScoringTiered.Points(tc.reaction); got != tc.want {
			t.Fatalf("reaction %s: expected %d, got %d", tc.reaction, tc.want, got)
		}
	}
	if ScoringFlat.Points(0) != 1 {
		t.Fatalf("flat scoring must award 1")
	}
	if _, err := ParseScoring("fancy"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPersistStopsOnRaiseFailure(t *testing.T) {
	sink := &fakeSink{raiseErr: errors.New("offline")}
	if _, err := Persist(context.Background(), sink, RoundResult{PlayerID: "12345", Level: 1}, time.Now()); err == nil {
		t.Fatalf("expected error")
	}
	if len(sink.rounds) != 0 {
		t.Fatalf("round must not be recorded after a failed raise")
	}
}

type fakeSink struct {
	raised   []int
	rounds   []model.RoundRecord
	raiseErr error
}

func (f *fakeSink) RaiseBestScore(_ context.Context, id string, score int) (model.Player, error) {
	if f.raiseErr != nil {
		return model.Player{}, f.raiseErr
	}
	f.raised = append(f.raised, score)
	return model.Player{ID: id, BestScore: score}, nil
}

func (f *fakeSink) RecordRound(_ context.Context, r model.RoundRecord) error {
	f.rounds = append(f.rounds, r)
	return nil
}
