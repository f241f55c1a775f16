// Package gesture turns a pointer drag stream or a button press on the
// active card into at most one committed verdict.
package gesture

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
)

var (
	// ErrInputDisabled is returned for any input after the card committed.
	ErrInputDisabled = errors.New("card input disabled")
	ErrNotDragging   = errors.New("no drag in progress")
	ErrDragActive    = errors.New("drag already in progress")
)

type State int

const (
	Idle State = iota
	Dragging
	Committed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultDistance = 100.0
	DefaultVelocity = 0.3

	maxRotationDeg = 30.0
	rotationPerDX  = 0.1
)

// Thresholds for committing a drag. Distance is in units, Velocity in
// units per millisecond.
type Thresholds struct {
	Distance float64
	Velocity float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Distance: DefaultDistance, Velocity: DefaultVelocity}
}

// Transform is the visual feedback for an in-progress drag.
type Transform struct {
	DX            float64
	RotationDeg   float64
	AcceptOpacity float64
	RejectOpacity float64
}

// Outcome of a finished drag or a button press. Verdict is set only when
// Committed is true; otherwise the card returns to rest.
type Outcome struct {
	Committed bool
	Verdict   models.Verdict
}

// Interpreter tracks one card activation. Create a new one for every card
// that becomes active.
type Interpreter struct {
	mu sync.Mutex
	th Thresholds

	state   State
	verdict models.Verdict

	startX   float64
	lastX    float64
	lastAt   time.Time
	velocity float64
}

func NewInterpreter(th Thresholds) *Interpreter {
	if th.Distance <= 0 {
		th.Distance = DefaultDistance
	}
	if th.Velocity <= 0 {
		th.Velocity = DefaultVelocity
	}
	return &Interpreter{th: th}
}

func (g *Interpreter) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Verdict returns the committed verdict, or "" before a commit.
func (g *Interpreter) Verdict() models.Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verdict
}

// Start begins a drag at horizontal position x.
func (g *Interpreter) Start(x float64, at time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Committed:
		return ErrInputDisabled
	case Dragging:
		return ErrDragActive
	}
	g.state = Dragging
	g.startX, g.lastX, g.lastAt = x, x, at
	g.velocity = 0
	return nil
}

// Move updates the drag and returns the transform to render. It never
// commits.
func (g *Interpreter) Move(x float64, at time.Time) (Transform, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireDragging(); err != nil {
		return Transform{}, err
	}
	g.sample(x, at)
	return g.transform(x - g.startX), nil
}

// End finishes the drag at x. Displacement is checked before velocity.
func (g *Interpreter) End(x float64, at time.Time) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireDragging(); err != nil {
		return Outcome{}, err
	}
	g.sample(x, at)

	dx := x - g.startX
	switch {
	case dx >= g.th.Distance:
		return g.commit(models.VerdictAccept), nil
	case dx <= -g.th.Distance:
		return g.commit(models.VerdictReject), nil
	case g.velocity >= g.th.Velocity:
		return g.commit(models.VerdictAccept), nil
	case g.velocity <= -g.th.Velocity:
		return g.commit(models.VerdictReject), nil
	}

	g.state = Cancelled
	return Outcome{}, nil
}

// Press commits v directly, as the accept/reject buttons do.
func (g *Interpreter) Press(v models.Verdict) (Outcome, error) {
	if _, err := models.ParseVerdict(string(v)); err != nil {
		return Outcome{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Committed:
		return Outcome{}, ErrInputDisabled
	case Dragging:
		return Outcome{}, ErrDragActive
	}
	return g.commit(v), nil
}

func (g *Interpreter) requireDragging() error {
	switch g.state {
	case Dragging:
		return nil
	case Committed:
		return ErrInputDisabled
	default:
		return ErrNotDragging
	}
}

// sample records a position. Velocity is taken over the latest segment with
// elapsed time; a zero-length segment keeps the previous estimate.
func (g *Interpreter) sample(x float64, at time.Time) {
	dt := float64(at.Sub(g.lastAt)) / float64(time.Millisecond)
	if dt > 0 {
		g.velocity = (x - g.lastX) / dt
		g.lastX, g.lastAt = x, at
	} else if x != g.lastX {
		g.lastX = x
	}
}

func (g *Interpreter) commit(v models.Verdict) Outcome {
	g.state = Committed
	g.verdict = v
	return Outcome{Committed: true, Verdict: v}
}

func (g *Interpreter) transform(dx float64) Transform {
	rot := math.Max(-maxRotationDeg, math.Min(maxRotationDeg, dx*rotationPerDX))
	return Transform{
		DX:            dx,
		RotationDeg:   rot,
		AcceptOpacity: clamp01(dx / g.th.Distance),
		RejectOpacity: clamp01(-dx / g.th.Distance),
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
