// Package render bridges the motion cycle and the solver to whatever draws
// the arm. Each frame it asks the cycle for a target, runs the solve, eases
// the gripper fingers toward their open or closed width, and publishes a
// snapshot of joint state for renderers and UI overlays. The bridge never
// lets a bad frame escape: a torn-down rig skips the frame and an unexpected
// panic in the update path is logged and swallowed rather than killing the
// loop.
package render

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/mechsim/armsim/kinematics"
	"github.com/mechsim/armsim/motion"
	"github.com/mechsim/armsim/rig"
)

// defaultGripTransition is how long, in cycle time units, the fingers take to
// move between their open and closed widths. The transition is eased, never a
// snap.
const defaultGripTransition = 0.35

// Snapshot is the per-frame state the bridge publishes. JointOrientations
// are world-frame rotation quaternions per joint, ready to hand to a scene
// graph; Gripping is the overlay-facing "is currently gripping" signal.
type Snapshot struct {
	Time              float64
	Phase             int
	JointAngles       map[string]float64
	JointOrientations map[string]quat.Number
	FingerSeparation  float64
	Gripping          bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock swaps the wall clock out, for tests.
func WithClock(c clock.Clock) Option {
	return func(b *Bridge) { b.clock = c }
}

// WithGripTransition sets the finger open/close transition duration in cycle
// time units.
func WithGripTransition(d float64) Option {
	return func(b *Bridge) { b.gripTransition = d }
}

// Bridge owns a rig and drives it from a motion cycle.
type Bridge struct {
	mu     sync.Mutex
	rig    *rig.Rig
	cycle  *motion.Cycle
	logger golog.Logger

	clock          clock.Clock
	gripTransition float64

	lastTime float64
	lastWp   motion.Waypoint

	sepCurrent float64
	sepFrom    float64
	sepTarget  float64
	sepStart   float64

	cancelCtx               context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewBridge returns a bridge driving r from cycle. The rig's current finger
// separation is taken as the starting point for grip transitions.
func NewBridge(r *rig.Rig, cycle *motion.Cycle, logger golog.Logger, opts ...Option) *Bridge {
	cancelCtx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		rig:            r,
		cycle:          cycle,
		logger:         logger,
		clock:          clock.New(),
		gripTransition: defaultGripTransition,
		cancelCtx:      cancelCtx,
		cancel:         cancel,
	}
	// The cycle begins in the open-handed approach phase; reflect that
	// before the first frame lands.
	b.lastWp.GripperOpen = true
	if r != nil {
		b.sepCurrent = r.FingerSeparation()
		b.sepFrom = b.sepCurrent
		b.sepTarget = b.sepCurrent
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Step advances the rig to time t: cycle tick, solve, finger easing. A bridge
// whose rig is gone (torn down, or never set) skips the frame silently, and
// any panic out of the numeric path is logged rather than propagated.
func (b *Bridge) Step(t float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer func() {
		if err := recover(); err != nil {
			b.logger.Errorw("frame update failed", "error", err)
		}
	}()

	if b.rig == nil || b.cycle == nil {
		return
	}

	wp := b.cycle.Tick(t)
	kinematics.Solve(b.rig, wp.Position, wp.Orientation)
	b.easeFingers(t, wp.GripperOpen)

	b.lastTime = t
	b.lastWp = wp
}

// easeFingers moves the current separation toward the waypoint's target
// width over gripTransition time units, restarting the ease whenever the
// target flips.
func (b *Bridge) easeFingers(t float64, open bool) {
	model := b.rig.Model()
	target := model.FingerClosedSeparation
	if open {
		target = model.FingerOpenSeparation
	}
	if target != b.sepTarget {
		b.sepFrom = b.sepCurrent
		b.sepTarget = target
		b.sepStart = t
	}
	// A clock that restarted behind the transition start would stall the
	// fingers forever; re-anchor instead.
	if t < b.sepStart {
		b.sepStart = t
	}

	if b.gripTransition <= 0 {
		b.sepCurrent = target
	} else {
		p := (t - b.sepStart) / b.gripTransition
		if p > 1 {
			p = 1
		}
		b.sepCurrent = b.sepFrom + (b.sepTarget-b.sepFrom)*motion.EaseInOutQuad(p)
	}
	b.rig.SetFingerSeparation(b.sepCurrent)
}

// Snapshot returns the latest published joint state. Safe to call from
// outside the frame loop.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		Time:             b.lastTime,
		Phase:            b.lastWp.Phase,
		FingerSeparation: b.sepCurrent,
		Gripping:         !b.lastWp.GripperOpen,
	}
	if b.rig == nil {
		return snap
	}

	snap.JointAngles = b.rig.Angles()
	snap.JointOrientations = make(map[string]quat.Number, len(rig.JointNames))
	for _, name := range rig.JointNames {
		j, ok := b.rig.Joint(name)
		if !ok {
			continue
		}
		q := mgl64.Mat4ToQuat(b.rig.WorldTransform(j))
		snap.JointOrientations[name] = quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
	}
	return snap
}

// Gripping reports whether the arm is currently holding, per the last frame.
func (b *Bridge) Gripping() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.lastWp.GripperOpen
}

// Rig returns the rig the bridge drives, nil after Close.
func (b *Bridge) Rig() *rig.Rig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rig
}

// StartLoop begins stepping the bridge at the given frame rate on its own
// goroutine, the stand-in for a display-synchronized callback. Time starts at
// zero when the loop starts. The loop stops on Close.
func (b *Bridge) StartLoop(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	interval := time.Duration(float64(time.Second) / fps)

	b.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer b.activeBackgroundWorkers.Done()
		start := b.clock.Now()
		ticker := b.clock.Ticker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.cancelCtx.Done():
				return
			case now := <-ticker.C:
				b.Step(now.Sub(start).Seconds())
			}
		}
	})
}

// Close stops the loop and detaches the rig. Steps that land after Close are
// defined no-ops; the rig is dropped wholesale, never partially edited.
func (b *Bridge) Close() {
	b.cancel()
	b.activeBackgroundWorkers.Wait()

	b.mu.Lock()
	b.rig = nil
	b.mu.Unlock()
}
