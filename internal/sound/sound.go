// Package sound plays short feedback tones for hits, misses and level changes.
package sound

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Player receives game feedback events.
type Player interface {
	Hit(points int)
	Miss()
	LevelUp()
	Close()
}

// Nop is a silent Player.
type Nop struct{}

// Hit does nothing.
func (Nop) Hit(int) {}

// Miss does nothing.
func (Nop) Miss() {}

// LevelUp does nothing.
func (Nop) LevelUp() {}

// Close does nothing.
func (Nop) Close() {}

// Speaker plays tones through the system audio device.
type Speaker struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	closed bool
}

// NewSpeaker initializes the audio device. Callers fall back to Nop on error.
func NewSpeaker() (*Speaker, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("failed to init speaker: %w", err)
	}
	s := &Speaker{mixer: &beep.Mixer{}}
	speaker.Play(s.mixer)
	return s, nil
}

// Hit plays a higher tone for faster reactions.
func (s *Speaker) Hit(points int) {
	freq := 660.0
	switch {
	case points >= 3:
		freq = 990
	case points == 2:
		freq = 880
	}
	s.play(freq, 60*time.Millisecond)
}

// Miss plays a low buzz.
func (s *Speaker) Miss() {
	s.play(150, 120*time.Millisecond)
}

// LevelUp plays a short rising pair.
func (s *Speaker) LevelUp() {
	first, err := Tone(sampleRate, 660, 90*time.Millisecond)
	if err != nil {
		return
	}
	second, err := Tone(sampleRate, 1320, 140*time.Millisecond)
	if err != nil {
		return
	}
	s.add(beep.Seq(first, second))
}

// Close silences anything still playing.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
}

func (s *Speaker) play(freq float64, d time.Duration) {
	tone, err := Tone(sampleRate, freq, d)
	if err != nil {
		return
	}
	s.add(tone)
}

func (s *Speaker) add(st beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

// Tone returns a quiet sine tone of the given length.
func Tone(rate beep.SampleRate, freq float64, d time.Duration) (beep.Streamer, error) {
	sine, err := generators.SineTone(rate, freq)
	if err != nil {
		return nil, err
	}
	return &effects.Volume{
		Streamer: beep.Take(rate.N(d), sine),
		Base:     2,
		Volume:   -3,
	}, nil
}
