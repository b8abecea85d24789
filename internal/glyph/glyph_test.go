package glyph

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassOf(t *testing.T) {
	cases := map[string]Class{
		"ㄅ": ClassInitial,
		"ㄙ": ClassInitial,
		"ㄧ": ClassMedial,
		"ㄩ": ClassMedial,
		"ㄚ": ClassFinal,
		"ㄦ": ClassFinal,
	}
	for g, want := range cases {
		if got := ClassOf(g); got != want {
			t.Fatalf("ClassOf(%q) = %v, want %v", g, got, want)
		}
	}
}

func TestRowsCoverAlphabet(t *testing.T) {
	count := 0
	for _, row := range Rows {
		for _, g := range row {
			if !Contains(Zhuyin, g) {
				t.Fatalf("row glyph %q not in alphabet", g)
			}
			count++
		}
	}
	if count != len(Zhuyin) {
		t.Fatalf("expected %d keys, got %d", len(Zhuyin), count)
	}
}

func TestDachenCoversAlphabet(t *testing.T) {
	for _, g := range Zhuyin {
		if _, ok := Dachen.KeyFor(g); !ok {
			t.Fatalf("no dachen key for %q", g)
		}
	}
}

func TestTranslate(t *testing.T) {
	if g, ok := Dachen.Translate('1', Zhuyin); !ok || g != "ㄅ" {
		t.Fatalf("expected 1 -> ㄅ, got %q %v", g, ok)
	}
	if g, ok := Dachen.Translate('Q', Zhuyin); !ok || g != "ㄆ" {
		t.Fatalf("expected Q -> ㄆ, got %q %v", g, ok)
	}
	if g, ok := KeyMap(nil).Translate('ㄇ', Zhuyin); !ok || g != "ㄇ" {
		t.Fatalf("expected glyph passthrough, got %q %v", g, ok)
	}
	if _, ok := KeyMap(nil).Translate('1', Zhuyin); ok {
		t.Fatalf("expected no translation without key map")
	}
	if _, ok := Dachen.Translate('1', []string{"ㄆ"}); ok {
		t.Fatalf("expected glyph outside alphabet to be rejected")
	}
}

func TestLoadAlphabet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alphabet.txt")
	if err := os.WriteFile(path, []byte("# initials\nㄅ\n\nㄆ\nㄅ\n"), 0o644); err != nil {
		t.Fatalf("write alphabet: %v", err)
	}
	glyphs, err := LoadAlphabet(path)
	if err != nil {
		t.Fatalf("LoadAlphabet failed: %v", err)
	}
	if len(glyphs) != 2 || glyphs[0] != "ㄅ" || glyphs[1] != "ㄆ" {
		t.Fatalf("unexpected glyphs: %v", glyphs)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(empty, []byte("\n# nothing\n"), 0o644); err != nil {
		t.Fatalf("write alphabet: %v", err)
	}
	if _, err := LoadAlphabet(empty); err == nil {
		t.Fatalf("expected error for empty alphabet")
	}
}
