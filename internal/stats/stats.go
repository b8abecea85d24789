// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

const sparkChars = " .:-=+*#%@"

// PassThreshold is the accuracy needed to clear a round.
const PassThreshold = 0.8

// RoundMetrics computes accuracy and hits per minute for a round.
// Accuracy is 0 when nothing was typed; elapsed time is floored at one second.
func RoundMetrics(correct, wrong, elapsedSeconds int) (accuracy, perMinute float64) {
	den := correct + wrong
	if den > 0 {
		accuracy = float64(correct) / float64(den)
	}
	if elapsedSeconds < 1 {
		elapsedSeconds = 1
	}
	minutes := float64(elapsedSeconds) / 60.0
	perMinute = float64(correct) / minutes
	return accuracy, perMinute
}

// Passed reports whether accuracy clears the threshold.
func Passed(accuracy float64) bool {
	return accuracy >= PassThreshold
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary for a player's rounds.
func RenderSummary(w io.Writer, p model.Player, rounds []model.RoundRecord) error {
	label := p.ID
	if p.Name != "" {
		label += " " + p.Name
	}
	if _, err := fmt.Fprintf(w, "Player %s\n", label); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best score: %d\n", p.BestScore); err != nil {
		return err
	}
	if len(rounds) == 0 {
		_, err := fmt.Fprintln(w, "No rounds found.")
		return err
	}
	var totalAcc, totalRate float64
	passed := 0
	maxLevel := 0
	for _, r := range rounds {
		totalAcc += r.Accuracy
		totalRate += r.PerMinute
		if r.Passed {
			passed++
		}
		if r.Level > maxLevel {
			maxLevel = r.Level
		}
	}
	count := float64(len(rounds))
	lines := []string{
		fmt.Sprintf("Rounds: %d (passed %d)", len(rounds), passed),
		fmt.Sprintf("Highest level: %d", maxLevel),
		fmt.Sprintf("Avg accuracy: %.2f%%", (totalAcc/count)*100),
		fmt.Sprintf("Avg hits/min: %.2f", totalRate/count),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistory prints accuracy and hit-rate sparklines, oldest round first.
func RenderHistory(w io.Writer, rounds []model.RoundRecord, window int) error {
	if len(rounds) == 0 {
		return nil
	}
	accs := make([]float64, len(rounds))
	rates := make([]float64, len(rounds))
	for i, r := range rounds {
		accs[i] = r.Accuracy * 100
		rates[i] = r.PerMinute
	}
	accs = MovingAverage(accs, window)
	rates = MovingAverage(rates, window)
	if _, err := fmt.Fprintf(w, "Accuracy  |%s| %.1f%%\n", Sparkline(accs), accs[len(accs)-1]); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Hits/min  |%s| %.1f\n", Sparkline(rates), rates[len(rates)-1]); err != nil {
		return err
	}
	return nil
}
