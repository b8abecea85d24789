package profile

import (
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	s, err := Open("tuimeteor_test")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestLoadEmpty(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected no saved profile")
	}
}

func TestSaveLoadForget(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(Profile{PlayerID: "12345", Name: "Mei"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	p, ok, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok || p.PlayerID != "12345" || p.Name != "Mei" || p.SavedAt.IsZero() {
		t.Fatalf("unexpected profile %+v (ok=%v)", p, ok)
	}
	if err := s.Forget(); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, err := s.Load(); err != nil || ok {
		t.Fatalf("expected profile to be gone, ok=%v err=%v", ok, err)
	}
}
