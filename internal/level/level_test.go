package level

import (
	"testing"
	"time"
)

func TestAtClamps(t *testing.T) {
	tbl := Table{
		{SpawnRatePerMinute: 10, RoundDuration: 60},
		{SpawnRatePerMinute: 20, RoundDuration: 45},
	}
	if got := tbl.At(0); got.SpawnRatePerMinute != 10 {
		t.Fatalf("expected level 0 to clamp to first entry, got %+v", got)
	}
	if got := tbl.At(2); got.RoundDuration != 45 {
		t.Fatalf("expected second entry, got %+v", got)
	}
	if got := tbl.At(9); got.RoundDuration != 45 {
		t.Fatalf("expected clamp to last entry, got %+v", got)
	}
	if !tbl.IsLast(2) || tbl.IsLast(1) {
		t.Fatalf("unexpected IsLast results")
	}
}

func TestSpawnInterval(t *testing.T) {
	cases := []struct {
		rate float64
		want time.Duration
	}{
		{10, 6 * time.Second},
		{15, 4 * time.Second},
		{120, 500 * time.Millisecond},
		{600, MinSpawnInterval},
	}
	for _, c := range cases {
		got := Level{SpawnRatePerMinute: c.rate, RoundDuration: 60}.SpawnInterval()
		if got != c.want {
			t.Fatalf("rate %.0f: expected %s, got %s", c.rate, c.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Default.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	if err := (Table{}).Validate(); err == nil {
		t.Fatalf("expected empty table error")
	}
	if err := (Table{{SpawnRatePerMinute: 0, RoundDuration: 60}}).Validate(); err == nil {
		t.Fatalf("expected spawn rate error")
	}
	if err := (Table{{SpawnRatePerMinute: 5, RoundDuration: 0}}).Validate(); err == nil {
		t.Fatalf("expected duration error")
	}
}
