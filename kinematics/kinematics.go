// Package kinematics solves joint angles for the six-joint rig. The solver is
// analytic: base yaw from atan2, shoulder and elbow from a two-link law of
// cosines on the upper-arm and forearm lengths, and the wrist joints mapped
// straight from the requested orientation. There is no multi-solution
// branching; the solve always lands in the elbow-forward configuration.
package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"github.com/mechsim/armsim/rig"
)

// Solve mutates the rig's joint angles so the end of the forearm chain
// reaches target (world frame) and the wrist joints take the given
// orientation angles one-to-one.
//
// Targets outside the arm's reach do not fail: the law-of-cosines argument is
// clamped to [-1, 1], which degrades to the nearest reachable pose (fully
// extended for too-far, fully folded for too-close). Missing joints are
// skipped individually, so a partially built or partially torn-down rig still
// gets whatever joints it has updated. A nil rig is a no-op.
//
// Base yaw is re-derived from scratch every call, so a target crossing the
// +/-180 degree seam makes joint1 jump rather than take the short way round.
// Accepted limitation.
func Solve(r *rig.Rig, target r3.Vector, orientation rig.EulerAngles) {
	if r == nil {
		return
	}

	local := toLocal(r, target)

	if j, ok := r.Joint(rig.JointBaseYaw); ok {
		j.SetAngle(math.Atan2(local.X, local.Z))
	}

	d := math.Hypot(local.X, local.Z)
	h := local.Y - r.ShoulderHeight()
	l1 := r.UpperArmLength()
	l2 := r.ForearmLength()

	distSq := d*d + h*h
	cosArg := clamp((l1*l1+l2*l2-distSq)/(2*l1*l2), -1, 1)
	elbow := math.Pi - math.Acos(cosArg)
	shoulder := math.Atan2(h, d) + math.Atan2(l2*math.Sin(elbow), l1+l2*math.Cos(elbow))

	// The variable angle rides on top of the model's rest rotation, so the
	// rest offset comes back out here. With a zero rest pose these are the
	// raw analytic angles.
	if j, ok := r.Joint(rig.JointShoulderPitch); ok {
		j.SetAngle(shoulder - j.RestAngle())
	}
	if j, ok := r.Joint(rig.JointElbowPitch); ok {
		j.SetAngle(elbow - j.RestAngle())
	}

	// No orientation solve; the three wrist joints take the requested angles
	// as-is.
	if j, ok := r.Joint(rig.JointWristRoll); ok {
		j.SetAngle(orientation.Roll)
	}
	if j, ok := r.Joint(rig.JointWristPitch); ok {
		j.SetAngle(orientation.Pitch)
	}
	if j, ok := r.Joint(rig.JointWristYaw); ok {
		j.SetAngle(orientation.Yaw)
	}
}

// toLocal transforms a world-frame point into the rig's root frame by
// inverting the rig's own stored pose. The solver never reaches into an
// externally owned scene graph for this.
func toLocal(r *rig.Rig, p r3.Vector) r3.Vector {
	inv := r.Pose().Inv()
	v := inv.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// WristPosition returns the world position of the wrist point, the end of the
// two-link chain the analytic solve places. After a Solve this lands on the
// target (or the nearest reachable point for out-of-reach targets).
func WristPosition(r *rig.Rig) (r3.Vector, bool) {
	if r == nil {
		return r3.Vector{}, false
	}
	j, ok := r.Joint(rig.JointWristRoll)
	if !ok {
		return r3.Vector{}, false
	}
	return r.WorldPosition(j), true
}

// EffectorPosition returns the world position of the gripper base. It trails
// the wrist point by the wrist/flange/effector segment lengths, which the
// positional solve deliberately ignores.
func EffectorPosition(r *rig.Rig) (r3.Vector, bool) {
	if r == nil || r.Effector() == nil {
		return r3.Vector{}, false
	}
	return r.WorldPosition(r.Effector()), true
}
