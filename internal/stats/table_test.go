package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Group", "Players", "Top"}
	rows := [][]string{
		{"301", "12", "140"},
		{"302", "3", "9"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Group Players Top" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "301        12 140" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "302         3   9" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Name", "Best"}, [][]string{{"小明", "7"}, {"Al", "12"}}, map[int]bool{1: true})
	if lines[1] != "小明    7" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "Al     12" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}

func TestRenderLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	players := []model.Player{
		{ID: "30101", Name: "Amy", BestScore: 42},
		{ID: "30102", BestScore: 17},
	}
	if err := RenderLeaderboard(&buf, players, 0); err != nil {
		t.Fatalf("render leaderboard: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"30101", "Amy", "42", "30102", "17"} {
		if !strings.Contains(out, want) {
			t.Fatalf("leaderboard missing %q: %s", want, out)
		}
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "1 ") {
		t.Fatalf("expected first rank on first row, got %q", lines[1])
	}

	buf.Reset()
	if err := RenderLeaderboard(&buf, nil, 0); err != nil {
		t.Fatalf("render empty leaderboard: %v", err)
	}
	if !strings.Contains(buf.String(), "No players found.") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}

func TestTerminalWidthOfBuffer(t *testing.T) {
	var buf bytes.Buffer
	if got := TerminalWidth(&buf); got != 0 {
		t.Fatalf("expected 0 for a non-terminal writer, got %d", got)
	}
}
