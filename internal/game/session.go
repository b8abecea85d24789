// Package game implements the round session: spawn cadence, scoring, the
// countdown and level progression. It has no UI or I/O; callers drive it with
// ticks and typed glyphs from a single goroutine.
package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/tuimeteor/internal/field"
	"github.com/verte-zerg/tuimeteor/internal/level"
	"github.com/verte-zerg/tuimeteor/internal/player"
	"github.com/verte-zerg/tuimeteor/internal/stats"
)

// ErrNoPlayer is returned when a round is started before a player is set.
var ErrNoPlayer = errors.New("enter a 5-digit player id first")

// State is the session lifecycle state.
type State int

const (
	// StateIdle has no player or has not started yet.
	StateIdle State = iota
	// StateRunning accepts ticks and input.
	StateRunning
	// StatePaused keeps everything frozen until Start.
	StatePaused
	// StateRoundComplete waits for Start to begin the next round.
	StateRoundComplete
)

// String returns a display name for the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateRoundComplete:
		return "round complete"
	default:
		return "idle"
	}
}

// Scoring selects how hits are rewarded.
type Scoring int

const (
	// ScoringTiered awards 3, 2 or 1 points by reaction time.
	ScoringTiered Scoring = iota
	// ScoringFlat awards one point per hit.
	ScoringFlat
)

// MaxFrameDelta caps a single motion step. A fresh spawn can never cross the
// exit line within one step.
const MaxFrameDelta = 100 * time.Millisecond

// Reaction tiers for ScoringTiered.
const (
	FastReaction   = 1500 * time.Millisecond
	MediumReaction = 2500 * time.Millisecond
)

// ParseScoring parses "tiered" or "flat".
func ParseScoring(s string) (Scoring, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tiered":
		return ScoringTiered, nil
	case "flat":
		return ScoringFlat, nil
	default:
		return ScoringTiered, fmt.Errorf("unknown scoring %q (use tiered or flat)", s)
	}
}

// String returns the scoring name.
func (s Scoring) String() string {
	if s == ScoringFlat {
		return "flat"
	}
	return "tiered"
}

// Points returns the reward for a hit with the given reaction time.
func (s Scoring) Points(reaction time.Duration) int {
	if s == ScoringFlat {
		return 1
	}
	switch {
	case reaction <= FastReaction:
		return 3
	case reaction <= MediumReaction:
		return 2
	default:
		return 1
	}
}

// Config holds the session policies.
type Config struct {
	Levels       level.Table
	Alphabet     []string
	Direction    field.Direction
	Width        float64
	Height       float64
	Scoring      Scoring
	AutoContinue bool
	Seed         int64
}

// Outcome classifies a submitted glyph.
type Outcome int

const (
	// OutcomeIgnored means the session was not running.
	OutcomeIgnored Outcome = iota
	// OutcomeHit means an entity was cleared.
	OutcomeHit
	// OutcomeMiss means no entity carried the glyph.
	OutcomeMiss
)

// Submission describes what a typed glyph did.
type Submission struct {
	Outcome  Outcome
	Entity   field.Entity
	Points   int
	Reaction time.Duration
}

// Motion reports the effects of one motion tick.
type Motion struct {
	Spawned bool
	Entity  field.Entity
	Reaped  int
}

// Session is one logged-in player's sequence of rounds.
type Session struct {
	cfg      Config
	field    *field.Field
	state    State
	playerID string
	name     string

	score    int
	correct  int
	wrong    int
	level    int
	timeLeft int
	elapsed  int

	spawnAcc time.Duration
	clock    time.Duration
	last     *RoundResult
}

// NewSession validates cfg and returns an idle session.
func NewSession(cfg Config) (*Session, error) {
	if len(cfg.Levels) == 0 {
		cfg.Levels = level.Default
	}
	if err := cfg.Levels.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Alphabet) == 0 {
		return nil, errors.New("alphabet is empty")
	}
	if cfg.Width == 0 {
		cfg.Width = field.DefaultWidth
	}
	if cfg.Height == 0 {
		cfg.Height = field.DefaultHeight
	}
	f, err := field.New(cfg.Width, cfg.Height, cfg.Direction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	s := &Session{cfg: cfg, field: f}
	s.reset()
	return s, nil
}

// SetPlayer identifies the player and starts a fresh idle session for them.
func (s *Session) SetPlayer(id, name string) error {
	if err := player.ValidateID(id); err != nil {
		return err
	}
	s.playerID = id
	s.name = player.NormalizeName(name)
	s.reset()
	return nil
}

// Start begins or resumes play. It is a no-op while already running.
func (s *Session) Start() error {
	if s.playerID == "" {
		return ErrNoPlayer
	}
	s.state = StateRunning
	return nil
}

// Pause freezes the session. It is a no-op unless running.
func (s *Session) Pause() {
	if s.state == StateRunning {
		s.state = StatePaused
	}
}

// Restart drops back to level 1 with a zero score and starts running.
func (s *Session) Restart() error {
	if s.playerID == "" {
		return ErrNoPlayer
	}
	s.reset()
	s.state = StateRunning
	return nil
}

// CountdownTick consumes one second of round time. When the round runs out
// it returns the round result and true.
func (s *Session) CountdownTick() (RoundResult, bool) {
	if s.state != StateRunning {
		return RoundResult{}, false
	}
	s.timeLeft--
	s.elapsed++
	if s.timeLeft > 0 {
		return RoundResult{}, false
	}
	return s.endRound(), true
}

// MotionTick spawns when due, advances every entity and reaps those that
// left the field, in that order. Each reaped entity costs one point and
// counts as wrong.
func (s *Session) MotionTick(dt time.Duration) Motion {
	var m Motion
	if s.state != StateRunning || dt <= 0 {
		return m
	}
	if dt > MaxFrameDelta {
		dt = MaxFrameDelta
	}
	s.clock += dt
	s.spawnAcc += dt
	if s.spawnAcc >= s.cfg.Levels.SpawnInterval(s.level) {
		m.Entity = s.field.Spawn(s.cfg.Alphabet, s.clock)
		m.Spawned = true
		s.spawnAcc = 0
	}
	s.field.Advance(field.DeltaFactor(dt))
	m.Reaped = s.field.ReapOutOfBounds()
	for i := 0; i < m.Reaped; i++ {
		s.penalize()
	}
	return m
}

// SubmitGlyph applies a typed glyph. Hits score by the configured policy;
// misses cost one point.
func (s *Session) SubmitGlyph(label string) Submission {
	if s.state != StateRunning {
		return Submission{Outcome: OutcomeIgnored}
	}
	e, ok := s.field.Resolve(label)
	if !ok {
		s.penalize()
		return Submission{Outcome: OutcomeMiss}
	}
	reaction := s.clock - e.SpawnedAt
	points := s.cfg.Scoring.Points(reaction)
	s.score += points
	s.correct++
	return Submission{Outcome: OutcomeHit, Entity: e, Points: points, Reaction: reaction}
}

func (s *Session) penalize() {
	s.wrong++
	if s.score > 0 {
		s.score--
	}
}

func (s *Session) endRound() RoundResult {
	accuracy, perMinute := stats.RoundMetrics(s.correct, s.wrong, s.elapsed)
	r := RoundResult{
		PlayerID:      s.playerID,
		Level:         s.level,
		Correct:       s.correct,
		Wrong:         s.wrong,
		Score:         s.score,
		Accuracy:      accuracy,
		PerMinute:     perMinute,
		Passed:        stats.Passed(accuracy),
		Elapsed:       time.Duration(s.elapsed) * time.Second,
		BestCandidate: s.score,
	}
	if r.Passed && !s.cfg.Levels.IsLast(s.level) {
		s.level++
		r.LevelUp = true
	}
	r.NextLevel = s.level

	s.correct = 0
	s.wrong = 0
	s.field.Clear()
	s.spawnAcc = 0
	s.elapsed = 0
	s.timeLeft = s.cfg.Levels.At(s.level).RoundDuration
	if s.cfg.AutoContinue {
		s.state = StateRunning
	} else {
		s.state = StateRoundComplete
	}
	s.last = &r
	return r
}

func (s *Session) reset() {
	s.state = StateIdle
	s.score = 0
	s.correct = 0
	s.wrong = 0
	s.level = 1
	s.elapsed = 0
	s.spawnAcc = 0
	s.last = nil
	s.field.Clear()
	s.timeLeft = s.cfg.Levels.At(1).RoundDuration
}

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// PlayerID returns the current player id, empty before SetPlayer.
func (s *Session) PlayerID() string { return s.playerID }

// PlayerName returns the display name.
func (s *Session) PlayerName() string { return s.name }

// Score returns the cumulative session score.
func (s *Session) Score() int { return s.score }

// Correct returns hits in the current round.
func (s *Session) Correct() int { return s.correct }

// Wrong returns misses and reaps in the current round.
func (s *Session) Wrong() int { return s.wrong }

// Level returns the 1-based level.
func (s *Session) Level() int { return s.level }

// Levels returns the number of levels in the progression.
func (s *Session) Levels() int { return s.cfg.Levels.Len() }

// TimeLeft returns the seconds remaining in the round.
func (s *Session) TimeLeft() int { return s.timeLeft }

// Accuracy returns the running accuracy of the current round.
func (s *Session) Accuracy() float64 {
	acc, _ := stats.RoundMetrics(s.correct, s.wrong, s.elapsed)
	return acc
}

// Clock returns game time, which excludes pauses.
func (s *Session) Clock() time.Duration { return s.clock }

// Entities returns a copy of the active entities.
func (s *Session) Entities() []field.Entity { return s.field.Entities() }

// Bounds returns the logical field size and the exit line.
func (s *Session) Bounds() (width, height, exitY float64) {
	return s.field.Width(), s.field.Height(), s.field.ExitY()
}

// Direction returns the motion model.
func (s *Session) Direction() field.Direction { return s.field.Direction() }

// Alphabet returns the glyphs that can spawn.
func (s *Session) Alphabet() []string { return s.cfg.Alphabet }

// LastResult returns the most recent round result, if any.
func (s *Session) LastResult() (RoundResult, bool) {
	if s.last == nil {
		return RoundResult{}, false
	}
	return *s.last, true
}
