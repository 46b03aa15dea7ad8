package character

import (
	"math"
	"testing"

	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 50

// flatWorld is a floor at y=0 that ends at edgeZ, with an optional ceiling.
type flatWorld struct {
	edgeZ   float64
	ceiling float64
}

func newFlatWorld() *flatWorld {
	return &flatWorld{edgeZ: math.Inf(1)}
}

func (w *flatWorld) floorUnder(pos mgl64.Vec3) bool {
	return pos.Z() < w.edgeZ
}

func (w *flatWorld) ProbeGround(pos mgl64.Vec3, _ Capsule) GroundingStatus {
	if w.floorUnder(pos) && pos.Y() <= 0.05 && pos.Y() >= -0.05 {
		return GroundingStatus{
			FoundAnyGround:   true,
			IsStableOnGround: true,
			GroundNormal:     gamemath.Up,
			GroundPoint:      mgl64.Vec3{pos.X(), 0, pos.Z()},
		}
	}
	return GroundingStatus{}
}

func (w *flatWorld) Overlaps(pos mgl64.Vec3, capsule Capsule) int {
	if w.ceiling > 0 && pos.Y()+capsule.Top() > w.ceiling {
		return 1
	}
	return 0
}

func (w *flatWorld) Sweep(pos mgl64.Vec3, _ Capsule, delta mgl64.Vec3, snap bool) SweepResult {
	next := pos.Add(delta)
	if w.floorUnder(next) && (next.Y() < 0 || (snap && next.Y() < 0.5)) {
		next[1] = 0
		return SweepResult{Position: next, Normals: []mgl64.Vec3{gamemath.Up}}
	}
	return SweepResult{Position: next}
}

func forward() CharacterInput {
	return CharacterInput{Rotation: mgl64.QuatIdent(), Move: mgl64.Vec2{0, 1}}
}

func idle() CharacterInput {
	return CharacterInput{Rotation: mgl64.QuatIdent()}
}

func step(m *Motor, in CharacterInput, ticks int) {
	for i := 0; i < ticks; i++ {
		m.Controller().UpdateInput(in)
		m.Tick(dt)
		// Edge inputs are consumed once.
		in.Jump = false
		in.Crouch = netconfig.CrouchNone
	}
}

func planarSpeed(m *Motor) float64 {
	return gamemath.PlanarSpeed(m.Velocity)
}

func TestStandingCharacterSettlesOnGround(t *testing.T) {
	m := NewMotor(newFlatWorld(), DefaultMovementConfig())
	step(m, idle(), 3)

	st := m.Controller().State()
	assert.True(t, st.Grounded)
	assert.Equal(t, netconfig.StanceStand, st.Stance)
	assert.InDelta(t, 0, m.Position.Y(), 1e-9)
}

func TestWalkApproachesWalkSpeed(t *testing.T) {
	cfg := DefaultMovementConfig()
	m := NewMotor(newFlatWorld(), cfg)
	step(m, forward(), 100)

	assert.InDelta(t, cfg.WalkSpeed, planarSpeed(m), 0.01)
	assert.Greater(t, m.Position.Z(), 0.0)

	in := forward()
	in.Sprint = true
	step(m, in, 100)
	assert.InDelta(t, cfg.SprintSpeed, planarSpeed(m), 0.01)
}

func TestCrouchShrinksCapsuleBeforeMove(t *testing.T) {
	cfg := DefaultMovementConfig()
	m := NewMotor(newFlatWorld(), cfg)
	step(m, idle(), 2)

	in := idle()
	in.Crouch = netconfig.CrouchToggle
	step(m, in, 1)

	assert.Equal(t, netconfig.StanceCrouch, m.Controller().State().Stance)
	assert.Equal(t, cfg.CrouchCapsule(), m.Capsule)
}

func TestSlideFromStandEntersAtStartSpeedAndDecaysToCrouch(t *testing.T) {
	cfg := DefaultMovementConfig()
	m := NewMotor(newFlatWorld(), cfg)
	step(m, idle(), 2)

	in := forward()
	in.Crouch = netconfig.CrouchToggle
	step(m, in, 1)

	st := m.Controller().State()
	require.Equal(t, netconfig.StanceSlide, st.Stance)
	// Entry speed is the start speed, then one tick of friction.
	assert.InDelta(t, cfg.SlideStartSpeed*(1-cfg.SlideFriction*dt), planarSpeed(m), 1e-6)

	step(m, forward(), 100)
	st = m.Controller().State()
	assert.Equal(t, netconfig.StanceCrouch, st.Stance, "slide decays into crouch, not stand")
	assert.True(t, m.Controller().CrouchRequested())
	assert.InDelta(t, cfg.CrouchSpeed, planarSpeed(m), 0.05)
}

func TestSlideKeepsHigherPriorSpeed(t *testing.T) {
	cfg := DefaultMovementConfig()
	cfg.WalkSpeed = 30
	m := NewMotor(newFlatWorld(), cfg)
	step(m, forward(), 150)
	prior := planarSpeed(m)
	require.InDelta(t, 30, prior, 0.01)

	in := forward()
	in.Crouch = netconfig.CrouchToggle
	step(m, in, 1)

	require.Equal(t, netconfig.StanceSlide, m.Controller().State().Stance)
	assert.InDelta(t, prior*(1-cfg.SlideFriction*dt), planarSpeed(m), 1e-6)
}

func TestHoldingCrouchNeverReentersSlide(t *testing.T) {
	m := NewMotor(newFlatWorld(), DefaultMovementConfig())
	step(m, idle(), 2)

	// Crouch while standing still: no movement, no slide.
	in := idle()
	in.Crouch = netconfig.CrouchToggle
	step(m, in, 1)
	step(m, idle(), 5)
	require.Equal(t, netconfig.StanceCrouch, m.Controller().State().Stance)

	// Start moving while still holding crouch.
	for i := 0; i < 60; i++ {
		step(m, forward(), 1)
		assert.NotEqual(t, netconfig.StanceSlide, m.Controller().State().Stance, "tick %d", i)
	}
}

func TestUncrouchBlockedByCeiling(t *testing.T) {
	cfg := DefaultMovementConfig()
	w := newFlatWorld()
	m := NewMotor(w, cfg)
	step(m, idle(), 2)

	in := idle()
	in.Crouch = netconfig.CrouchToggle
	step(m, in, 1)
	require.Equal(t, netconfig.StanceCrouch, m.Controller().State().Stance)

	w.ceiling = 1.5
	step(m, in, 1) // release crouch under the ceiling
	assert.Equal(t, netconfig.StanceCrouch, m.Controller().State().Stance)
	assert.True(t, m.Controller().CrouchRequested(), "crouch is re-asserted when blocked")
	assert.Equal(t, cfg.CrouchCapsule(), m.Capsule)

	w.ceiling = 0
	step(m, in, 1)
	assert.Equal(t, netconfig.StanceStand, m.Controller().State().Stance)
	assert.Equal(t, cfg.StandCapsule(), m.Capsule)
}

func TestJumpFromGround(t *testing.T) {
	cfg := DefaultMovementConfig()
	m := NewMotor(newFlatWorld(), cfg)
	step(m, idle(), 2)

	in := idle()
	in.Jump = true
	step(m, in, 1)

	assert.InDelta(t, cfg.JumpSpeed, m.Velocity.Y(), 1e-9)
	assert.Greater(t, m.Position.Y(), 0.0)

	step(m, idle(), 1)
	assert.False(t, m.Controller().State().Grounded)
}

func TestJumpSustainReducesGravityWhileAscending(t *testing.T) {
	cfg := DefaultMovementConfig()
	held := NewMotor(newFlatWorld(), cfg)
	released := NewMotor(newFlatWorld(), cfg)
	for _, m := range []*Motor{held, released} {
		step(m, idle(), 2)
		in := idle()
		in.Jump = true
		step(m, in, 1)
	}

	sustain := idle()
	sustain.JumpSustain = true
	step(held, sustain, 3)
	step(released, idle(), 3)

	assert.InDelta(t, cfg.JumpSpeed+3*cfg.Gravity*cfg.JumpSustainGravity*dt, held.Velocity.Y(), 1e-9)
	assert.InDelta(t, cfg.JumpSpeed+3*cfg.Gravity*dt, released.Velocity.Y(), 1e-9)
}

func walkOffLedge(t *testing.T, m *Motor) {
	t.Helper()
	for i := 0; i < 50 && m.Controller().State().Grounded; i++ {
		step(m, forward(), 1)
	}
	require.False(t, m.Controller().State().Grounded)
}

func TestCoyoteJumpSucceedsOnceAfterLeavingGround(t *testing.T) {
	cfg := DefaultMovementConfig()
	w := newFlatWorld()
	w.edgeZ = 1
	m := NewMotor(w, cfg)
	step(m, idle(), 2)
	walkOffLedge(t, m)

	in := forward()
	in.Jump = true
	step(m, in, 1)
	assert.InDelta(t, cfg.JumpSpeed, m.Velocity.Y(), 1e-9, "coyote jump honored")

	// A second jump in the same airborne period is refused and expires.
	in.Jump = true
	for i := 0; i < 20; i++ {
		before := m.Velocity.Y()
		step(m, in, 1)
		in.Jump = false
		assert.Less(t, m.Velocity.Y(), before, "tick %d: only gravity acts", i)
	}
	assert.False(t, m.Controller().requestedJump, "latched jump expires after coyote time")
}

func TestCoyoteJumpExpires(t *testing.T) {
	cfg := DefaultMovementConfig()
	w := newFlatWorld()
	w.edgeZ = 1
	m := NewMotor(w, cfg)
	step(m, idle(), 2)
	walkOffLedge(t, m)

	ticks := int(cfg.CoyoteTime/dt) + 2
	step(m, forward(), ticks)

	before := m.Velocity.Y()
	in := forward()
	in.Jump = true
	step(m, in, 1)
	assert.Less(t, m.Velocity.Y(), before)
}

func TestLatchedJumpFiresOnLanding(t *testing.T) {
	cfg := DefaultMovementConfig()
	m := NewMotor(newFlatWorld(), cfg)
	m.SetPosition(mgl64.Vec3{0, 4, 0}, true)

	// Fall past the coyote window so only the latch can honor the jump.
	step(m, idle(), 12)
	require.False(t, m.Controller().State().Grounded)
	require.Greater(t, m.Position.Y(), 0.5)

	in := idle()
	in.Jump = true
	landed := false
	for i := 0; i < 8; i++ {
		step(m, in, 1)
		in.Jump = false
		if m.Velocity.Y() > 0 {
			landed = true
			break
		}
	}
	require.True(t, landed, "buffered jump should fire on the landing tick")
	assert.InDelta(t, cfg.JumpSpeed, m.Velocity.Y(), 1e-9)
}

func TestSlideOnLandingWithCrouchInAir(t *testing.T) {
	cfg := DefaultMovementConfig()
	m := NewMotor(newFlatWorld(), cfg)
	m.SetPosition(mgl64.Vec3{0, 2, 0}, true)
	m.Velocity = mgl64.Vec3{0, 0, 10}

	step(m, idle(), 1)
	in := forward()
	in.Crouch = netconfig.CrouchToggle
	step(m, in, 1)
	require.Equal(t, netconfig.StanceCrouch, m.Controller().State().Stance)

	for i := 0; i < 60 && !m.Controller().State().Grounded; i++ {
		step(m, forward(), 1)
	}
	require.True(t, m.Controller().State().Grounded)
	assert.Equal(t, netconfig.StanceSlide, m.Controller().State().Stance)
	assert.Greater(t, planarSpeed(m), cfg.SlideStartSpeed-1)
}

func TestLandingCrouchedWithoutAirCrouchGetsNoBoost(t *testing.T) {
	cfg := DefaultMovementConfig()
	m := NewMotor(newFlatWorld(), cfg)
	step(m, idle(), 2)
	in := idle()
	in.Crouch = netconfig.CrouchToggle
	step(m, in, 1)

	m.SetPosition(mgl64.Vec3{0, 2, 0}, true)
	m.Velocity = mgl64.Vec3{0, 0, 10}
	for i := 0; i < 60; i++ {
		step(m, forward(), 1)
		if m.Controller().State().Grounded {
			break
		}
	}
	require.True(t, m.Controller().State().Grounded)
	assert.Less(t, planarSpeed(m), cfg.SlideStartSpeed-5)
}

func TestSlideEndsWhenGroundIsLost(t *testing.T) {
	cfg := DefaultMovementConfig()
	w := newFlatWorld()
	w.edgeZ = 2
	m := NewMotor(w, cfg)
	step(m, idle(), 2)

	in := forward()
	in.Crouch = netconfig.CrouchToggle
	step(m, in, 1)
	require.Equal(t, netconfig.StanceSlide, m.Controller().State().Stance)

	for i := 0; i < 10 && m.Controller().State().Grounded; i++ {
		step(m, forward(), 1)
	}
	step(m, forward(), 1)
	assert.Equal(t, netconfig.StanceCrouch, m.Controller().State().Stance)
}

func TestAirControlRespectsAirSpeed(t *testing.T) {
	cfg := DefaultMovementConfig()
	w := newFlatWorld()
	m := NewMotor(w, cfg)
	m.SetPosition(mgl64.Vec3{0, 1000, 0}, true)

	step(m, forward(), 100)
	assert.InDelta(t, cfg.AirSpeed, planarSpeed(m), 1e-6)
}

func TestRotationFollowsPlanarLook(t *testing.T) {
	m := NewMotor(newFlatWorld(), DefaultMovementConfig())

	// Looking right and slightly down.
	look := gamemath.YawRotation(math.Pi / 2).Mul(mgl64.QuatRotate(0.3, mgl64.Vec3{1, 0, 0}))
	in := idle()
	in.Rotation = look
	step(m, in, 1)

	assert.InDelta(t, math.Pi/2, gamemath.YawOf(m.Rotation), 1e-9)
}
