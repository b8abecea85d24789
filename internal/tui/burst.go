package tui

import (
	"fmt"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const burstDuration = 0.6

// burst is the fading score marker left where a glyph was cleared.
type burst struct {
	x, y  float64
	text  string
	tween *gween.Tween
	level float32
}

func newBurst(x, y float64, points int) *burst {
	return &burst{
		x:     x,
		y:     y,
		text:  fmt.Sprintf("+%d", points),
		tween: gween.New(1, 0, burstDuration, ease.OutQuad),
		level: 1,
	}
}

// advance steps the fade and reports whether the burst is finished.
func (b *burst) advance(dt time.Duration) bool {
	level, done := b.tween.Update(float32(dt.Seconds()))
	b.level = level
	return done
}

func advanceBursts(bursts []*burst, dt time.Duration) []*burst {
	kept := bursts[:0]
	for _, b := range bursts {
		if !b.advance(dt) {
			kept = append(kept, b)
		}
	}
	return kept
}
