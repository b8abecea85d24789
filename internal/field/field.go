// Package field owns the falling glyphs: spawning, motion, reaping and
// matching typed glyphs against them.
package field

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Logical field geometry. Renderers scale it to their surface.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 500.0
	SpawnOffset   = 20.0
	ExitMargin    = 20.0
	MinSpeed      = 1.5
	MaxSpeed      = 4.0
)

// NominalFrame is the frame length speeds are expressed against.
const NominalFrame = 16 * time.Millisecond

// Direction selects the motion model.
type Direction int

const (
	// DirectionStraight spawns along the top edge and falls straight down.
	DirectionStraight Direction = iota
	// DirectionDiagonal spawns in the top-right band and falls down-left.
	DirectionDiagonal
)

// ParseDirection parses "straight" or "diagonal".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "straight":
		return DirectionStraight, nil
	case "diagonal":
		return DirectionDiagonal, nil
	default:
		return DirectionStraight, fmt.Errorf("unknown direction %q (use straight or diagonal)", s)
	}
}

// String returns the direction name.
func (d Direction) String() string {
	if d == DirectionDiagonal {
		return "diagonal"
	}
	return "straight"
}

// Entity is a falling glyph. Velocity is in field units per NominalFrame.
type Entity struct {
	ID        uint64
	X, Y      float64
	VX, VY    float64
	Label     string
	SpawnedAt time.Duration
}

// Field holds the active entities of one session.
type Field struct {
	width     float64
	height    float64
	direction Direction
	rnd       *rand.Rand
	entities  []Entity
	nextID    uint64
}

// New returns an empty field. The size must leave room for the exit margin.
func New(width, height float64, direction Direction, seed int64) (*Field, error) {
	if width <= 2*ExitMargin || height <= 2*ExitMargin {
		return nil, fmt.Errorf("field size %.0fx%.0f is too small", width, height)
	}
	return &Field{
		width:     width,
		height:    height,
		direction: direction,
		rnd:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Width returns the logical width.
func (f *Field) Width() float64 { return f.width }

// Height returns the logical height.
func (f *Field) Height() float64 { return f.height }

// Direction returns the motion model.
func (f *Field) Direction() Direction { return f.direction }

// ExitY is the line entities must not cross.
func (f *Field) ExitY() float64 {
	return f.height - ExitMargin
}

// Len returns the number of active entities.
func (f *Field) Len() int {
	return len(f.entities)
}

// Entities returns a copy of the active entities.
func (f *Field) Entities() []Entity {
	out := make([]Entity, len(f.entities))
	copy(out, f.entities)
	return out
}

// Clear removes every entity.
func (f *Field) Clear() {
	f.entities = nil
}

// Spawn creates an entity with a uniformly random label from alphabet and
// adds it to the field. now is the session's game time.
func (f *Field) Spawn(alphabet []string, now time.Duration) Entity {
	if len(alphabet) == 0 {
		panic("field: spawn with empty alphabet")
	}
	f.nextID++
	e := Entity{
		ID:        f.nextID,
		Label:     alphabet[f.rnd.Intn(len(alphabet))],
		Y:         -SpawnOffset,
		SpawnedAt: now,
	}
	switch f.direction {
	case DirectionDiagonal:
		half := f.width / 2
		e.X = half + f.rnd.Float64()*(f.width-ExitMargin-half)
		e.VY = f.speed()
		e.VX = -f.speed()
	default:
		e.X = ExitMargin + f.rnd.Float64()*(f.width-2*ExitMargin)
		e.VY = f.speed()
	}
	f.entities = append(f.entities, e)
	return e
}

func (f *Field) speed() float64 {
	return MinSpeed + f.rnd.Float64()*(MaxSpeed-MinSpeed)
}

// Advance moves every entity by its velocity scaled by deltaFactor
// (frame delta / NominalFrame).
func (f *Field) Advance(deltaFactor float64) {
	if deltaFactor <= 0 {
		return
	}
	for i := range f.entities {
		f.entities[i].X += f.entities[i].VX * deltaFactor
		f.entities[i].Y += f.entities[i].VY * deltaFactor
	}
}

// ReapOutOfBounds removes entities that crossed the bottom exit line or the
// left edge and returns how many were removed.
func (f *Field) ReapOutOfBounds() int {
	exitY := f.ExitY()
	kept := f.entities[:0]
	reaped := 0
	for _, e := range f.entities {
		if e.Y > exitY || e.X < 0 {
			reaped++
			continue
		}
		kept = append(kept, e)
	}
	f.entities = kept
	return reaped
}

// Remaining is the distance left before e exits the field.
func (f *Field) Remaining(e Entity) float64 {
	d := f.ExitY() - e.Y
	if e.VX < 0 && e.X < d {
		d = e.X
	}
	return d
}

// DeltaFactor converts a frame delta into motion units.
func DeltaFactor(dt time.Duration) float64 {
	return float64(dt) / float64(NominalFrame)
}
