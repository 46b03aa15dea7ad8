// Package character implements the deterministic kinematic character
// controller: a stance state machine (stand, crouch, slide) orthogonal to
// grounded/airborne, and the motor that integrates it once per fixed tick
// against a capsule collision provider.
package character

import (
	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// CharacterState is the controller's view of one character after a tick.
type CharacterState struct {
	Grounded     bool
	Stance       netconfig.Stance
	Velocity     mgl64.Vec3
	Acceleration mgl64.Vec3
}

// CharacterInput is the intent snapshot for one simulation tick.
type CharacterInput struct {
	Rotation    mgl64.Quat
	Move        mgl64.Vec2
	Jump        bool
	JumpSustain bool
	Crouch      netconfig.CrouchInput
	Sprint      bool
}

// Capsule describes the collision volume of a character. Position is at the
// capsule's feet; YOffset is the height of its center above the feet.
type Capsule struct {
	Radius  float64
	Height  float64
	YOffset float64
}

// Top returns the height of the capsule's top above the feet.
func (c Capsule) Top() float64 {
	return c.YOffset + c.Height/2
}

// GroundingStatus is the result of probing for ground under a capsule.
type GroundingStatus struct {
	FoundAnyGround   bool
	IsStableOnGround bool
	GroundNormal     mgl64.Vec3
	GroundPoint      mgl64.Vec3
}

// SweepResult is where a capsule ended up after a collision-resolved move and
// the normals of every blocking surface it touched on the way.
type SweepResult struct {
	Position mgl64.Vec3
	Normals  []mgl64.Vec3
}

// CollisionWorld is the capsule collision provider the motor consumes. The
// broad and narrow phase live behind it.
type CollisionWorld interface {
	// ProbeGround looks for ground directly under a capsule standing at pos.
	ProbeGround(pos mgl64.Vec3, capsule Capsule) GroundingStatus
	// Overlaps counts blocking volumes intersecting the capsule at pos.
	Overlaps(pos mgl64.Vec3, capsule Capsule) int
	// Sweep moves a capsule from pos by delta. When snapToGround is set the
	// capsule follows walkable ground and steps up ledges within step height.
	Sweep(pos mgl64.Vec3, capsule Capsule, delta mgl64.Vec3, snapToGround bool) SweepResult
}
