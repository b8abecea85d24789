// Package model defines shared data structures.
package model

import "time"

// PlayConfig defines game settings.
type PlayConfig struct {
	PlayerID     string
	Name         string
	Server       string
	Direction    string
	AutoContinue bool
	Scoring      string
	Sound        bool
	KeyMap       string
	AlphabetFile string
	Seed         int64
}

// Player is a persisted player record.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	BestScore int       `json:"bestScore"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// GroupSummary aggregates the players sharing an id prefix.
type GroupSummary struct {
	Group        string  `json:"group"`
	MemberCount  int     `json:"memberCount"`
	TopScore     int     `json:"topScore"`
	AverageScore float64 `json:"averageScore"`
}

// RoundRecord captures a completed round.
type RoundRecord struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	Level      int       `json:"level"`
	Correct    int       `json:"correct"`
	Wrong      int       `json:"wrong"`
	Score      int       `json:"score"`
	Accuracy   float64   `json:"accuracy"`
	PerMinute  float64   `json:"perMinute"`
	Passed     bool      `json:"passed"`
	DurationMs int64     `json:"durationMs"`
	EndedAt    time.Time `json:"endedAt"`
}

// ClearMode selects how admin clears treat matching records.
type ClearMode string

const (
	// ClearReset zeroes best scores and drops round history.
	ClearReset ClearMode = "reset"
	// ClearDelete removes the records.
	ClearDelete ClearMode = "delete"
)

// Live event types pushed to leaderboard watchers.
const (
	EventBest    = "best"
	EventCleared = "cleared"
)

// LiveEvent notifies watchers that the leaderboard changed.
type LiveEvent struct {
	Type      string    `json:"type"`
	PlayerID  string    `json:"playerId,omitempty"`
	BestScore int       `json:"bestScore,omitempty"`
	Group     string    `json:"group,omitempty"`
	Mode      ClearMode `json:"mode,omitempty"`
	At        time.Time `json:"at"`
}
