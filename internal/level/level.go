// Package level holds the progression table.
package level

import (
	"fmt"
	"math"
	"time"
)

// MinSpawnInterval bounds the worst-case entity density.
const MinSpawnInterval = 400 * time.Millisecond

// Level defines spawn cadence and round length for one step of progression.
type Level struct {
	SpawnRatePerMinute float64
	RoundDuration      int // seconds
}

// Table is an ordered progression. Level numbers are 1-based.
type Table []Level

// Default mirrors the classic two-step progression.
var Default = Table{
	{SpawnRatePerMinute: 10, RoundDuration: 60},
	{SpawnRatePerMinute: 15, RoundDuration: 60},
}

// Validate checks every entry.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("progression table is empty")
	}
	for i, lvl := range t {
		if lvl.SpawnRatePerMinute <= 0 || math.IsNaN(lvl.SpawnRatePerMinute) || math.IsInf(lvl.SpawnRatePerMinute, 0) {
			return fmt.Errorf("level %d: spawn rate must be > 0", i+1)
		}
		if lvl.RoundDuration <= 0 {
			return fmt.Errorf("level %d: duration must be > 0", i+1)
		}
	}
	return nil
}

// Len returns the number of levels.
func (t Table) Len() int {
	return len(t)
}

// At returns the entry for a 1-based level, clamped to the table bounds.
func (t Table) At(n int) Level {
	if n < 1 {
		n = 1
	}
	if n > len(t) {
		n = len(t)
	}
	return t[n-1]
}

// IsLast reports whether n is the final level.
func (t Table) IsLast(n int) bool {
	return n >= len(t)
}

// SpawnInterval returns the time between spawns for a level.
func (t Table) SpawnInterval(n int) time.Duration {
	return t.At(n).SpawnInterval()
}

// SpawnInterval returns max(MinSpawnInterval, 60000/rate ms).
func (l Level) SpawnInterval() time.Duration {
	ms := math.Round(60000 / l.SpawnRatePerMinute)
	d := time.Duration(ms) * time.Millisecond
	if d < MinSpawnInterval {
		return MinSpawnInterval
	}
	return d
}

// Duration returns the round length.
func (l Level) Duration() time.Duration {
	return time.Duration(l.RoundDuration) * time.Second
}
