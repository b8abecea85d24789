package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

func TestRoundMetrics(t *testing.T) {
	acc, rate := RoundMetrics(8, 2, 60)
	if math.Abs(acc-0.8) > 1e-9 {
		t.Fatalf("expected accuracy 0.8, got %f", acc)
	}
	if !Passed(acc) {
		t.Fatalf("expected exact threshold to pass")
	}
	if math.Abs(rate-8) > 1e-9 {
		t.Fatalf("expected 8 hits/min, got %f", rate)
	}

	acc, rate = RoundMetrics(0, 0, 0)
	if acc != 0 || rate != 0 {
		t.Fatalf("expected zero metrics, got %f %f", acc, rate)
	}
	if Passed(acc) {
		t.Fatalf("expected empty round to fail")
	}

	_, rate = RoundMetrics(3, 0, 0)
	if math.Abs(rate-180) > 1e-9 {
		t.Fatalf("expected elapsed floored at one second, got %f", rate)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestSparkline(t *testing.T) {
	if s := Sparkline([]float64{0, 1}); s != " @" {
		t.Fatalf("unexpected sparkline %q", s)
	}
	if s := Sparkline([]float64{3, 3, 3}); len(s) != 3 {
		t.Fatalf("unexpected flat sparkline %q", s)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	rounds := []model.RoundRecord{
		{Level: 1, Accuracy: 1, PerMinute: 10, Passed: true},
		{Level: 2, Accuracy: 0.5, PerMinute: 6},
	}
	if err := RenderSummary(&buf, model.Player{ID: "30101", Name: "Amy", BestScore: 12}, rounds); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"30101 Amy", "Best score: 12", "Rounds: 2 (passed 1)", "Highest level: 2", "75.00%", "8.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q: %s", want, out)
		}
	}
}
