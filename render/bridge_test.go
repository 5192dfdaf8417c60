package render

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/mechsim/armsim/kinematics"
	"github.com/mechsim/armsim/motion"
	"github.com/mechsim/armsim/rig"
)

func TestStepMatchesManualSolve(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cycle := motion.NewCycle(motion.DefaultCycleConfig())

	driven := rig.New()
	b := NewBridge(driven, cycle, logger)
	b.Step(1.25)

	// The bridge is just controller -> solver plumbing; doing the same two
	// calls by hand on a fresh rig lands on identical angles.
	manual := rig.New()
	wp := cycle.Tick(1.25)
	kinematics.Solve(manual, wp.Position, wp.Orientation)

	test.That(t, driven.Angles(), test.ShouldResemble, manual.Angles())
}

func TestSnapshot(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cycle := motion.NewCycle(motion.DefaultCycleConfig())
	b := NewBridge(rig.New(), cycle, logger)

	// Mid grip-lift phase: holding.
	phaseLen := 1 / cycle.Config().Frequency
	stepTime := 1.5 * phaseLen
	b.Step(stepTime)

	snap := b.Snapshot()
	test.That(t, snap.Time, test.ShouldAlmostEqual, stepTime)
	test.That(t, snap.Phase, test.ShouldEqual, motion.PhaseGripLift)
	test.That(t, snap.Gripping, test.ShouldBeTrue)
	test.That(t, b.Gripping(), test.ShouldBeTrue)
	test.That(t, len(snap.JointAngles), test.ShouldEqual, len(rig.JointNames))
	test.That(t, len(snap.JointOrientations), test.ShouldEqual, len(rig.JointNames))
	for _, q := range snap.JointOrientations {
		norm := q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag
		test.That(t, norm, test.ShouldAlmostEqual, 1.0, 1e-6)
	}

	// Back in the approach phase: not holding.
	b.Step(4 * phaseLen)
	test.That(t, b.Gripping(), test.ShouldBeFalse)
}

func TestGripperEasing(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := motion.DefaultCycleConfig()
	cycle := motion.NewCycle(cfg)
	arm := rig.New()
	model := arm.Model()
	b := NewBridge(arm, cycle, logger)

	phaseLen := 1 / cfg.Frequency

	// Open through the approach phase.
	b.Step(0.5 * phaseLen)
	test.That(t, b.Snapshot().FingerSeparation, test.ShouldAlmostEqual, model.FingerOpenSeparation)

	// The close starts at the grip phase boundary but is not an instant
	// snap: partway into the transition the separation sits strictly
	// between the two widths.
	b.Step(1.0 * phaseLen)
	test.That(t, b.Snapshot().FingerSeparation, test.ShouldAlmostEqual, model.FingerOpenSeparation)

	b.Step(1.0*phaseLen + 0.15)
	mid := b.Snapshot().FingerSeparation
	test.That(t, mid, test.ShouldBeGreaterThan, model.FingerClosedSeparation)
	test.That(t, mid, test.ShouldBeLessThan, model.FingerOpenSeparation)

	// Fully closed once the transition duration has elapsed.
	b.Step(1.0*phaseLen + 0.5)
	test.That(t, b.Snapshot().FingerSeparation, test.ShouldAlmostEqual, model.FingerClosedSeparation)

	// The rig's finger pair tracks the eased separation.
	test.That(t, arm.FingerSeparation(), test.ShouldAlmostEqual, model.FingerClosedSeparation)
}

func TestUseAfterClose(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cycle := motion.NewCycle(motion.DefaultCycleConfig())
	b := NewBridge(rig.New(), cycle, logger)
	b.Step(0.5)
	b.Close()

	// A frame callback landing after teardown is a defined no-op.
	b.Step(1.5)
	test.That(t, b.Rig(), test.ShouldBeNil)

	snap := b.Snapshot()
	test.That(t, snap.JointAngles, test.ShouldBeNil)
	test.That(t, snap.Time, test.ShouldAlmostEqual, 0.5)
}

func TestNilRig(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cycle := motion.NewCycle(motion.DefaultCycleConfig())
	b := NewBridge(nil, cycle, logger)
	b.Step(1.0)
	test.That(t, b.Snapshot().JointAngles, test.ShouldBeNil)
	b.Close()
}

func TestLoop(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mock := clock.NewMock()
	cycle := motion.NewCycle(motion.DefaultCycleConfig())
	b := NewBridge(rig.New(), cycle, logger, WithClock(mock))

	b.StartLoop(10)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mock.Add(100 * time.Millisecond)
		test.That(tb, b.Snapshot().Time, test.ShouldBeGreaterThan, 0.0)
	})

	b.Close()
	// No more frames after close.
	stopped := b.Snapshot().Time
	mock.Add(time.Second)
	test.That(t, b.Snapshot().Time, test.ShouldEqual, stopped)
}
