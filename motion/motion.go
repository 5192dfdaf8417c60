// Package motion generates the pick-and-place target cycle that drives the
// arm. The controller is stateless: a waypoint is purely a function of the
// time it is asked about, so replaying a time value replays the exact same
// target. Four phases of equal duration repeat forever — approach, grip and
// lift, transfer, release and return.
package motion

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/mechsim/armsim/rig"
)

// Cycle phases, in the order they occur. The phase is derived from time
// alone; no phase can be skipped or re-entered out of order.
const (
	PhaseApproach = iota
	PhaseGripLift
	PhaseTransfer
	PhaseRelease

	NumPhases
)

// Waypoint is the controller's per-frame output: where the effector should
// be, how the wrist should be angled, and whether the gripper is open.
type Waypoint struct {
	Position    r3.Vector
	Orientation rig.EulerAngles
	GripperOpen bool
	Phase       int
	Progress    float64
}

// CycleConfig holds the tunable constants of the motion cycle. Positions are
// in the rig's frame, scene units; frequencies are cycles per time unit.
type CycleConfig struct {
	// Frequency scales time into phase counts: phase = floor(t*Frequency) mod 4.
	Frequency float64
	// Home, Pick and Place are the neutral, pick-up and put-down targets.
	Home  r3.Vector
	Pick  r3.Vector
	Place r3.Vector
	// LiftHeight is how far above Pick/Place the transfer leg runs.
	LiftHeight float64
	// ReleasePoint is the raw progress within the release phase at which the
	// gripper lets go. Before it the gripper is still closed, which makes the
	// release deliberately later than the grip is early.
	ReleasePoint float64
	// Sway adds a slow sinusoidal drift to the horizontal target coordinates
	// so the arm never looks frozen. It never feeds back into phase logic.
	SwayAmplitudeX float64
	SwayFrequencyX float64
	SwayAmplitudeZ float64
	SwayFrequencyZ float64
	// WristAmplitude/WristFrequency drive the three wrist angles with
	// independent sinusoids, fully decoupled from the phases.
	WristAmplitude rig.EulerAngles
	WristFrequency rig.EulerAngles
}

// DefaultCycleConfig returns the cycle tuned for the default rig model.
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		Frequency:      0.5,
		Home:           r3.Vector{X: 0, Y: 2.6, Z: 2.4},
		Pick:           r3.Vector{X: 1.3, Y: 0.9, Z: 2.3},
		Place:          r3.Vector{X: -1.5, Y: 0.9, Z: 2.0},
		LiftHeight:     1.4,
		ReleasePoint:   0.3,
		SwayAmplitudeX: 0.08,
		SwayFrequencyX: 1.7,
		SwayAmplitudeZ: 0.06,
		SwayFrequencyZ: 1.3,
		WristAmplitude: rig.EulerAngles{Roll: 0.25, Pitch: 0.2, Yaw: 0.3},
		WristFrequency: rig.EulerAngles{Roll: 0.9, Pitch: 1.4, Yaw: 0.7},
	}
}

// Cycle maps time onto waypoints.
type Cycle struct {
	cfg CycleConfig
}

// NewCycle returns a cycle with the given config.
func NewCycle(cfg CycleConfig) *Cycle {
	return &Cycle{cfg: cfg}
}

// Config returns the cycle's config.
func (c *Cycle) Config() CycleConfig { return c.cfg }

// Period returns the duration of one full four-phase cycle in time units.
func (c *Cycle) Period() float64 {
	return NumPhases / c.cfg.Frequency
}

// Tick returns the waypoint for time t. Non-finite and negative times clamp
// to zero; the reference behavior left this case open, and clamping keeps
// Tick total and pure.
func (c *Cycle) Tick(t float64) Waypoint {
	t = sanitizeTime(t)

	scaled := t * c.cfg.Frequency
	phase := int(math.Floor(scaled)) % NumPhases
	progress := scaled - math.Floor(scaled)
	eased := EaseInOutQuad(progress)

	pickLifted := c.cfg.Pick.Add(r3.Vector{Y: c.cfg.LiftHeight})
	placeLifted := c.cfg.Place.Add(r3.Vector{Y: c.cfg.LiftHeight})

	var pos r3.Vector
	var open bool
	switch phase {
	case PhaseApproach:
		pos = lerp(c.cfg.Home, c.cfg.Pick, eased)
		open = true
	case PhaseGripLift:
		pos = lerp(c.cfg.Pick, pickLifted, eased)
		open = false
	case PhaseTransfer:
		pos = lerp(pickLifted, placeLifted, eased)
		open = false
	case PhaseRelease:
		pos = lerp(placeLifted, c.cfg.Home, eased)
		// Release timing keys off raw progress, not the eased value.
		open = progress >= c.cfg.ReleasePoint
	}

	pos.X += c.cfg.SwayAmplitudeX * math.Sin(t*c.cfg.SwayFrequencyX)
	pos.Z += c.cfg.SwayAmplitudeZ * math.Sin(t*c.cfg.SwayFrequencyZ)

	orient := rig.EulerAngles{
		Roll:  c.cfg.WristAmplitude.Roll * math.Sin(t*c.cfg.WristFrequency.Roll),
		Pitch: c.cfg.WristAmplitude.Pitch * math.Sin(t*c.cfg.WristFrequency.Pitch),
		Yaw:   c.cfg.WristAmplitude.Yaw * math.Sin(t*c.cfg.WristFrequency.Yaw),
	}

	return Waypoint{
		Position:    pos,
		Orientation: orient,
		GripperOpen: open,
		Phase:       phase,
		Progress:    progress,
	}
}

// EaseInOutQuad is the quadratic ease-in-out curve used for every
// interpolated value in the cycle. The shape, not just "some easing", is part
// of the motion's contract.
func EaseInOutQuad(p float64) float64 {
	if p < 0.5 {
		return 2 * p * p
	}
	q := -2*p + 2
	return 1 - q*q/2
}

func sanitizeTime(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return 0
	}
	return t
}

func lerp(a, b r3.Vector, s float64) r3.Vector {
	return a.Add(b.Sub(a).Mul(s))
}
