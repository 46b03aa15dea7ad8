package character

import (
	"math"

	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// Controller is the stance and movement state machine for one character. It
// decides target velocity, stance transitions and jump validity; the Motor
// owns position and calls into the controller in a fixed order every tick.
type Controller struct {
	cfg MovementConfig

	state     CharacterState
	lastState CharacterState

	requestedRotation      mgl64.Quat
	requestedMovement      mgl64.Vec3
	requestedJump          bool
	requestedSustainedJump bool
	requestedCrouch        bool
	requestedCrouchInAir   bool
	requestedSprint        bool

	timeSinceUngrounded  float64
	timeSinceJumpRequest float64
	ungroundedDueToJump  bool
}

// NewController creates a standing, grounded-unknown controller.
func NewController(cfg MovementConfig) *Controller {
	c := &Controller{
		cfg:               cfg,
		requestedRotation: mgl64.QuatIdent(),
	}
	c.state.Stance = netconfig.StanceStand
	c.lastState = c.state
	return c
}

// State returns the state as of the end of the last tick.
func (c *Controller) State() CharacterState { return c.state }

// LastState returns the state as of the start of the last tick.
func (c *Controller) LastState() CharacterState { return c.lastState }

// CrouchRequested reports whether the character is holding crouch.
func (c *Controller) CrouchRequested() bool { return c.requestedCrouch }

// UpdateInput folds one input snapshot into the controller's requests. Jump is
// latched until consumed or expired, crouch toggles.
func (c *Controller) UpdateInput(input CharacterInput) {
	c.requestedRotation = input.Rotation
	if c.requestedRotation == (mgl64.Quat{}) {
		c.requestedRotation = mgl64.QuatIdent()
	}

	move := gamemath.ClampMagnitude(mgl64.Vec3{input.Move.X(), 0, input.Move.Y()}, 1)
	c.requestedMovement = c.requestedRotation.Rotate(move)

	wasRequestingJump := c.requestedJump
	c.requestedJump = c.requestedJump || input.Jump
	if c.requestedJump && !wasRequestingJump {
		c.timeSinceJumpRequest = 0
	}
	c.requestedSustainedJump = input.JumpSustain
	c.requestedSprint = input.Sprint

	wasRequestingCrouch := c.requestedCrouch
	if input.Crouch == netconfig.CrouchToggle {
		c.requestedCrouch = !c.requestedCrouch
	}
	if c.requestedCrouch && !wasRequestingCrouch {
		c.requestedCrouchInAir = !c.state.Grounded
	} else if !c.requestedCrouch && wasRequestingCrouch {
		c.requestedCrouchInAir = false
	}
}

// beforeUpdate snapshots the previous tick and applies crouching before the
// move so the move uses the reduced volume.
func (c *Controller) beforeUpdate(m *Motor) {
	c.lastState = c.state
	if c.requestedCrouch && c.state.Stance == netconfig.StanceStand {
		c.state.Stance = netconfig.StanceCrouch
		m.Capsule = c.cfg.CrouchCapsule()
	}
}

// postGroundingUpdate ends a slide the moment ground is lost.
func (c *Controller) postGroundingUpdate(m *Motor) {
	if !m.Grounding.IsStableOnGround && c.state.Stance == netconfig.StanceSlide {
		c.state.Stance = netconfig.StanceCrouch
	}
}

// updateRotation turns the character to face the planar look direction.
func (c *Controller) updateRotation(current mgl64.Quat) mgl64.Quat {
	forward := c.requestedRotation.Rotate(gamemath.Forward)
	if rot, ok := gamemath.LookRotation(forward); ok {
		return rot
	}
	return current
}

// updateVelocity computes this tick's velocity from the current one.
func (c *Controller) updateVelocity(m *Motor, v mgl64.Vec3, dt float64) mgl64.Vec3 {
	c.state.Acceleration = mgl64.Vec3{}
	if m.Grounding.IsStableOnGround {
		v = c.groundedVelocity(m, v, dt)
	} else {
		v = c.airborneVelocity(m, v, dt)
	}
	return c.resolveJump(m, v, dt)
}

func (c *Controller) groundedVelocity(m *Motor, v mgl64.Vec3, dt float64) mgl64.Vec3 {
	c.timeSinceUngrounded = 0
	c.ungroundedDueToJump = false

	normal := m.Grounding.GroundNormal
	groundedMovement := gamemath.TangentToSurface(c.requestedMovement, normal, gamemath.Up).
		Mul(c.requestedMovement.Len())

	// Slide entry happens only on the transition into crouching while moving.
	moving := groundedMovement.LenSqr() > 0
	crouching := c.state.Stance == netconfig.StanceCrouch
	wasStanding := c.lastState.Stance == netconfig.StanceStand
	wasInAir := !c.lastState.Grounded
	if moving && crouching && (wasStanding || wasInAir) {
		c.state.Stance = netconfig.StanceSlide

		if wasInAir {
			v = gamemath.ProjectOnPlane(c.lastState.Velocity, normal)
		}

		startSpeed := c.cfg.SlideStartSpeed
		if wasInAir {
			// Only a crouch pressed mid-air earns the landing boost.
			if !c.requestedCrouchInAir {
				startSpeed = 0
			}
			c.requestedCrouchInAir = false
		}

		slideSpeed := math.Max(startSpeed, v.Len())
		heading := v
		if heading.LenSqr() < 1e-12 {
			heading = groundedMovement
		}
		v = gamemath.TangentToSurface(heading, normal, gamemath.Up).Mul(slideSpeed)
	}

	if c.state.Stance != netconfig.StanceSlide {
		speed, response := c.cfg.CrouchSpeed, c.cfg.CrouchResponse
		if c.state.Stance == netconfig.StanceStand {
			speed, response = c.cfg.WalkSpeed, c.cfg.WalkResponse
			if c.requestedSprint {
				speed = c.cfg.SprintSpeed
			}
		}

		target := groundedMovement.Mul(speed)
		next := gamemath.Lerp(v, target, gamemath.ResponseFactor(response, dt))
		c.state.Acceleration = next.Sub(v).Mul(1 / dt)
		return next
	}

	// Friction
	v = v.Sub(v.Mul(c.cfg.SlideFriction * dt))

	// Slope
	slope := gamemath.ProjectOnPlane(gamemath.Up.Mul(-1), normal).Mul(c.cfg.SlideGravity * dt)
	v = v.Sub(slope)

	// Steer without gaining speed
	speed := v.Len()
	target := groundedMovement.Mul(speed)
	steered := v.Add(target.Sub(v).Mul(dt * c.cfg.SlideSteerAcceleration))
	steered = gamemath.ClampMagnitude(steered, speed)
	c.state.Acceleration = steered.Sub(v).Mul(1 / dt)
	v = steered

	if v.Len() < c.cfg.SlideEndSpeed {
		c.state.Stance = netconfig.StanceCrouch
	}
	return v
}

func (c *Controller) airborneVelocity(m *Motor, v mgl64.Vec3, dt float64) mgl64.Vec3 {
	c.timeSinceUngrounded += dt
	up := gamemath.Up

	if c.requestedMovement.LenSqr() > 0 {
		planarMovement := gamemath.SafeNormalize(gamemath.ProjectOnPlane(c.requestedMovement, up)).
			Mul(c.requestedMovement.Len())
		planarVelocity := gamemath.ProjectOnPlane(v, up)
		force := planarMovement.Mul(c.cfg.AirAcceleration * dt)

		if planarVelocity.Len() < c.cfg.AirSpeed {
			target := gamemath.ClampMagnitude(planarVelocity.Add(force), c.cfg.AirSpeed)
			force = target.Sub(planarVelocity)
		} else if planarVelocity.Dot(force) > 0 {
			// At the cap only steering perpendicular to the current heading is allowed.
			force = gamemath.ProjectOnPlane(force, gamemath.SafeNormalize(planarVelocity))
		}

		// Steep ground under us: do not let air control climb it.
		if m.Grounding.FoundAnyGround && v.Dot(v.Add(force)) > 0 {
			obstruction := gamemath.ObstructionNormal(up, m.Grounding.GroundNormal)
			force = gamemath.ProjectOnPlane(force, obstruction)
		}

		v = v.Add(force)
	}

	gravity := c.cfg.Gravity
	if c.requestedSustainedJump && v.Dot(up) > 0 {
		gravity *= c.cfg.JumpSustainGravity
	}
	return v.Add(up.Mul(gravity * dt))
}

func (c *Controller) resolveJump(m *Motor, v mgl64.Vec3, dt float64) mgl64.Vec3 {
	if !c.requestedJump {
		return v
	}

	grounded := m.Grounding.IsStableOnGround
	canCoyoteJump := c.timeSinceUngrounded <= c.cfg.CoyoteTime && !c.ungroundedDueToJump
	if !grounded && !canCoyoteJump {
		c.timeSinceJumpRequest += dt
		c.requestedJump = c.timeSinceJumpRequest <= c.cfg.CoyoteTime
		return v
	}

	c.requestedJump = false
	c.requestedCrouch = false
	c.requestedCrouchInAir = false

	m.ForceUnground()
	c.ungroundedDueToJump = true

	up := gamemath.Up
	current := v.Dot(up)
	target := math.Max(current, c.cfg.JumpSpeed)
	return v.Add(up.Mul(target - current))
}

// afterUpdate stands the character back up if crouch was released and there
// is room, then records the tick's outcome.
func (c *Controller) afterUpdate(m *Motor) {
	if !c.requestedCrouch && c.state.Stance != netconfig.StanceStand {
		stand := c.cfg.StandCapsule()
		if m.world.Overlaps(m.Position, stand) > 0 {
			c.requestedCrouch = true
			m.Capsule = c.cfg.CrouchCapsule()
		} else {
			m.Capsule = stand
			c.state.Stance = netconfig.StanceStand
		}
	}

	c.state.Grounded = m.Grounding.IsStableOnGround
	c.state.Velocity = m.Velocity
}
