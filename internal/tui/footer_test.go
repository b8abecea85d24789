package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/tuimeteor/internal/game"
	"github.com/verte-zerg/tuimeteor/internal/glyph"
)

func TestRenderFooterFormats(t *testing.T) {
	s, err := game.NewSession(game.Config{Alphabet: glyph.Zhuyin, Seed: 1})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := s.SetPlayer("12345", "Mei"); err != nil {
		t.Fatalf("set player: %v", err)
	}
	m := &Model{session: s, best: 42}
	out := m.renderFooter()
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"12345 Mei", "Level 1/2", "Time 60s", "Score 0", "Best 42", "Acc 0.0%", "idle"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderKeysShowsDachenHints(t *testing.T) {
	s, err := game.NewSession(game.Config{Alphabet: glyph.Zhuyin, Seed: 1})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	m := &Model{session: s, keymap: glyph.Dachen}
	out := m.renderKeys()
	if got := strings.Count(out, "\n") + 1; got != len(glyph.Rows) {
		t.Fatalf("expected %d key rows, got %d", len(glyph.Rows), got)
	}
	if !containsAll(out, []string{"ㄅ1", "ㄆq", "ㄦ-"}) {
		t.Fatalf("key layout missing hints: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
