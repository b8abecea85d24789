package sound

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
)

func TestToneLength(t *testing.T) {
	rate := beep.SampleRate(44100)
	tone, err := Tone(rate, 880, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("tone: %v", err)
	}
	buf := make([][2]float64, 512)
	total := 0
	for {
		n, ok := tone.Stream(buf)
		total += n
		for i := 0; i < n; i++ {
			if buf[i][0] < -1 || buf[i][0] > 1 {
				t.Fatalf("sample %d out of range: %f", total-n+i, buf[i][0])
			}
		}
		if !ok {
			break
		}
	}
	if want := rate.N(50 * time.Millisecond); total != want {
		t.Fatalf("expected %d samples, got %d", want, total)
	}
}

func TestToneRejectsBadFrequency(t *testing.T) {
	if _, err := Tone(beep.SampleRate(8000), 6000, time.Millisecond); err == nil {
		t.Fatalf("expected error above the Nyquist limit")
	}
}

func TestNopIsPlayer(t *testing.T) {
	var p Player = Nop{}
	p.Hit(3)
	p.Miss()
	p.LevelUp()
	p.Close()
}
