package character

import (
	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/go-gl/mathgl/mgl64"
)

// Motor owns position, rotation and velocity of one character and integrates
// them once per fixed tick. Movement decisions are delegated to the
// Controller; collision queries go to the CollisionWorld.
type Motor struct {
	Position  mgl64.Vec3
	Rotation  mgl64.Quat
	Velocity  mgl64.Vec3
	Capsule   Capsule
	Grounding GroundingStatus

	world        CollisionWorld
	controller   *Controller
	mustUnground bool
}

// NewMotor creates a standing character at the origin.
func NewMotor(world CollisionWorld, cfg MovementConfig) *Motor {
	return &Motor{
		Rotation:   mgl64.QuatIdent(),
		Capsule:    cfg.StandCapsule(),
		world:      world,
		controller: NewController(cfg),
	}
}

// Controller returns the state machine driving this motor.
func (m *Motor) Controller() *Controller { return m.controller }

// SetWorld swaps the collision world, e.g. after a map change.
func (m *Motor) SetWorld(world CollisionWorld) { m.world = world }

// ForceUnground skips ground probing and ground snapping until the next tick
// so a jump can leave the ground.
func (m *Motor) ForceUnground() { m.mustUnground = true }

// SetPosition teleports the character. killVelocity also zeroes its velocity.
func (m *Motor) SetPosition(pos mgl64.Vec3, killVelocity bool) {
	m.Position = pos
	m.Grounding = GroundingStatus{}
	if killVelocity {
		m.Velocity = mgl64.Vec3{}
	}
}

// SetRotation sets the character heading directly.
func (m *Motor) SetRotation(rot mgl64.Quat) { m.Rotation = rot }

// Tick advances the character by dt seconds. The call order is fixed: pre-move
// stance change, ground probe, post-grounding stance change, rotation,
// velocity, collision-resolved move, post-move stance change.
func (m *Motor) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	c := m.controller

	c.beforeUpdate(m)

	if m.mustUnground {
		m.Grounding = GroundingStatus{}
		m.mustUnground = false
	} else {
		m.Grounding = m.world.ProbeGround(m.Position, m.Capsule)
	}

	c.postGroundingUpdate(m)
	m.Rotation = c.updateRotation(m.Rotation)
	m.Velocity = c.updateVelocity(m, m.Velocity, dt)

	snap := m.Grounding.IsStableOnGround && !m.mustUnground
	res := m.world.Sweep(m.Position, m.Capsule, m.Velocity.Mul(dt), snap)
	m.Position = res.Position
	for _, n := range res.Normals {
		// Lose only the velocity that drove into the surface.
		if m.Velocity.Dot(n) < 0 {
			m.Velocity = gamemath.ProjectOnPlane(m.Velocity, n)
		}
	}

	c.afterUpdate(m)
}
