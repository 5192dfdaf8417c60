// Package rig constructs the hierarchical joint/segment tree for a simulated
// six-joint industrial arm. The rig is pure data: a transform tree plus a
// record of current joint angles. It knows nothing about solving or drawing;
// the kinematics and render packages operate on it through the handles
// exposed here.
package rig

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Joint names, ordered base to effector. The chain is strict: each joint has
// exactly one parent and the only branch in the whole tree is the cosmetic
// finger pair hanging off the effector.
const (
	JointBaseYaw       = "joint1"
	JointShoulderPitch = "joint2"
	JointElbowPitch    = "joint3"
	JointWristRoll     = "joint4"
	JointWristPitch    = "joint5"
	JointWristYaw      = "joint6"
)

// JointNames lists every joint in chain order.
var JointNames = []string{
	JointBaseYaw,
	JointShoulderPitch,
	JointElbowPitch,
	JointWristRoll,
	JointWristPitch,
	JointWristYaw,
}

// EulerAngles represents an orientation as rotations about the wrist's three
// axes. Applied one-to-one to joint4/joint5/joint6; this is not a true
// orientation solve.
type EulerAngles struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Node is one element of the rig's transform tree: either a joint (axis set)
// or a fixed cosmetic segment (axis zero). A joint's full local rotation is
// its rest angle plus its variable angle, both about the same axis.
type Node struct {
	name     string
	parent   *Node
	children []*Node
	offset   r3.Vector
	axis     mgl64.Vec3
	rest     float64
	angle    float64
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Parent returns the node's parent, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children.
func (n *Node) Children() []*Node { return n.children }

// Offset returns the node's translation from its parent, in the parent's frame.
func (n *Node) Offset() r3.Vector { return n.offset }

// RestAngle returns the fixed rest rotation about the node's axis.
func (n *Node) RestAngle() float64 { return n.rest }

// Angle returns the variable joint angle in radians.
func (n *Node) Angle() float64 { return n.angle }

// SetAngle sets the variable joint angle. Non-finite values are dropped so a
// glitched solve can never poison the tree; the angle record stays finite.
func (n *Node) SetAngle(a float64) {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return
	}
	n.angle = a
}

// IsJoint reports whether the node carries a rotational degree of freedom.
func (n *Node) IsJoint() bool {
	return n.axis != (mgl64.Vec3{})
}

// LocalTransform returns the node's transform relative to its parent.
func (n *Node) LocalTransform() mgl64.Mat4 {
	m := mgl64.Translate3D(n.offset.X, n.offset.Y, n.offset.Z)
	if n.IsJoint() {
		m = m.Mul4(mgl64.HomogRotate3D(n.rest+n.angle, n.axis))
	}
	return m
}

// Rig is the full arm: a transform tree rooted at the base plate, a lookup
// table of joints, and the finger pair. Joint angles mutate every frame; the
// tree structure and segment lengths never change after construction.
type Rig struct {
	model       ModelConfig
	root        *Node
	nodes       map[string]*Node
	joints      map[string]*Node
	effector    *Node
	fingerLeft  *Node
	fingerRight *Node
	separation  float64
	pose        mgl64.Mat4
}

// New builds a rig from the embedded default model.
func New() *Rig {
	return NewFromConfig(DefaultModel())
}

// NewFromConfig builds a rig from the given model. Construction is pure data
// assembly and cannot fail; every joint in JointNames is reachable by name on
// the returned rig and every joint angle starts at zero. The rest pose comes
// entirely from the model's rest angles.
func NewFromConfig(cfg ModelConfig) *Rig {
	r := &Rig{
		model:      cfg,
		nodes:      map[string]*Node{},
		joints:     map[string]*Node{},
		separation: cfg.FingerOpenSeparation,
		pose:       mgl64.Ident4(),
	}

	r.root = r.addNode(nil, "base", r3.Vector{}, mgl64.Vec3{}, 0)

	j1 := r.addJoint(r.root, JointBaseYaw, r3.Vector{Y: cfg.BaseHeight}, mgl64.Vec3{0, 1, 0})
	housing := r.addNode(j1, "shoulder_housing", r3.Vector{Y: cfg.ShoulderHeight - cfg.BaseHeight}, mgl64.Vec3{}, 0)
	j2 := r.addJoint(housing, JointShoulderPitch, r3.Vector{}, mgl64.Vec3{-1, 0, 0})
	upperArm := r.addNode(j2, "upper_arm", r3.Vector{}, mgl64.Vec3{}, 0)
	j3 := r.addJoint(upperArm, JointElbowPitch, r3.Vector{Z: cfg.UpperArmLength}, mgl64.Vec3{1, 0, 0})
	forearm := r.addNode(j3, "forearm", r3.Vector{}, mgl64.Vec3{}, 0)
	j4 := r.addJoint(forearm, JointWristRoll, r3.Vector{Z: cfg.ForearmLength}, mgl64.Vec3{0, 0, 1})
	wrist := r.addNode(j4, "wrist", r3.Vector{}, mgl64.Vec3{}, 0)
	j5 := r.addJoint(wrist, JointWristPitch, r3.Vector{Z: cfg.WristLength}, mgl64.Vec3{-1, 0, 0})
	flange := r.addNode(j5, "flange", r3.Vector{}, mgl64.Vec3{}, 0)
	j6 := r.addJoint(flange, JointWristYaw, r3.Vector{Z: cfg.FlangeLength}, mgl64.Vec3{0, 1, 0})
	r.effector = r.addNode(j6, "effector", r3.Vector{Z: cfg.EffectorLength}, mgl64.Vec3{}, 0)

	half := r.separation / 2
	r.fingerLeft = r.addNode(r.effector, "finger_left", r3.Vector{X: -half}, mgl64.Vec3{}, 0)
	r.fingerRight = r.addNode(r.effector, "finger_right", r3.Vector{X: half}, mgl64.Vec3{}, 0)

	return r
}

func (r *Rig) addNode(parent *Node, name string, offset r3.Vector, axis mgl64.Vec3, rest float64) *Node {
	n := &Node{name: name, parent: parent, offset: offset, axis: axis, rest: rest}
	if parent != nil {
		parent.children = append(parent.children, n)
	}
	r.nodes[name] = n
	return n
}

func (r *Rig) addJoint(parent *Node, name string, offset r3.Vector, axis mgl64.Vec3) *Node {
	n := r.addNode(parent, name, offset, axis, r.model.RestAngles[name])
	r.joints[name] = n
	return n
}

// Root returns the root node of the transform tree.
func (r *Rig) Root() *Node { return r.root }

// Node looks up any node (joint or segment) by name.
func (r *Rig) Node(name string) (*Node, bool) {
	n, ok := r.nodes[name]
	return n, ok
}

// Joint looks up a joint by name.
func (r *Rig) Joint(name string) (*Node, bool) {
	j, ok := r.joints[name]
	return j, ok
}

// DetachJoint removes a joint from the lookup table, leaving the tree itself
// untouched. Solvers skip detached joints. Used when a rig is being torn down
// for wholesale replacement.
func (r *Rig) DetachJoint(name string) {
	delete(r.joints, name)
}

// Angles returns a snapshot of the joint-angle record.
func (r *Rig) Angles() map[string]float64 {
	out := make(map[string]float64, len(JointNames))
	for _, name := range JointNames {
		if j, ok := r.joints[name]; ok {
			out[name] = j.angle
		}
	}
	return out
}

// Effector returns the end-effector node (the gripper base).
func (r *Rig) Effector() *Node { return r.effector }

// Fingers returns the two cosmetic finger nodes. They branch off the effector
// and do not participate in kinematics.
func (r *Rig) Fingers() (*Node, *Node) { return r.fingerLeft, r.fingerRight }

// FingerSeparation returns the current distance between the two fingers.
func (r *Rig) FingerSeparation() float64 { return r.separation }

// SetFingerSeparation moves the finger pair symmetrically about the effector
// axis. Negative values clamp to zero.
func (r *Rig) SetFingerSeparation(s float64) {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return
	}
	if s < 0 {
		s = 0
	}
	r.separation = s
	half := s / 2
	r.fingerLeft.offset.X = -half
	r.fingerRight.offset.X = half
}

// Pose returns the placement of the rig's root in the world frame.
func (r *Rig) Pose() mgl64.Mat4 { return r.pose }

// SetPose places the rig's root in the world frame.
func (r *Rig) SetPose(pose mgl64.Mat4) { r.pose = pose }

// Model returns the geometric constants the rig was built from. The solver
// must consume these same constants; if it used its own copies the solved
// angles would detach from the rendered geometry.
func (r *Rig) Model() ModelConfig { return r.model }

// UpperArmLength returns the shoulder-to-elbow segment length.
func (r *Rig) UpperArmLength() float64 { return r.model.UpperArmLength }

// ForearmLength returns the elbow-to-wrist segment length.
func (r *Rig) ForearmLength() float64 { return r.model.ForearmLength }

// ShoulderHeight returns the height of the shoulder pitch joint above the
// rig's root, which base yaw never changes.
func (r *Rig) ShoulderHeight() float64 { return r.model.ShoulderHeight }

// WorldTransform returns the node's transform in the world frame, composing
// the rig's pose with every local transform down the chain.
func (r *Rig) WorldTransform(n *Node) mgl64.Mat4 {
	if n == nil {
		return r.pose
	}
	return r.WorldTransform(n.parent).Mul4(n.LocalTransform())
}

// WorldPosition returns the node's origin in the world frame.
func (r *Rig) WorldPosition(n *Node) r3.Vector {
	m := r.WorldTransform(n)
	return r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
}
