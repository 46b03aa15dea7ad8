package main

import (
	"math"
	"math/rand/v2"

	"github.com/automoto/frontline-mp/network"
	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
)

type botState int

const (
	stateWaiting botState = iota // Dead or not yet spawned
	stateWander
	stateChase
	stateAttack
)

var stateNames = map[botState]string{
	stateWaiting: "waiting",
	stateWander:  "wander",
	stateChase:   "chase",
	stateAttack:  "attack",
}

func (s botState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// recoilRecovery is how fast the aim settles back after a kick, per second.
const recoilRecovery = 6.0

type tuning struct {
	AttackRange float64
	ChaseRange  float64
	EyeHeight   float64
	WanderTicks int
	StrafeTicks int
	MaxAimPitch float64
}

func defaultTuning(eyeHeight float64) tuning {
	return tuning{
		AttackRange: 40,
		ChaseRange:  120,
		EyeHeight:   eyeHeight,
		WanderTicks: 100,
		StrafeTicks: 40,
		MaxAimPitch: math.Pi / 2.2,
	}
}

// decision is the bot's intent for one tick.
type decision struct {
	Move   mgl64.Vec2
	Yaw    float64
	Pitch  float64
	Sprint bool
	Jump   bool
	Fire   bool
	Reload bool
	Target esync.NetworkId
}

// Rotation is the upright look rotation sent with movement input.
func (d decision) Rotation() mgl64.Quat {
	return gamemath.YawRotation(d.Yaw)
}

// Aim is the unit look direction including pitch.
func (d decision) Aim() mgl64.Vec3 {
	cp := math.Cos(d.Pitch)
	return mgl64.Vec3{math.Sin(d.Yaw) * cp, math.Sin(d.Pitch), math.Cos(d.Yaw) * cp}
}

// brain picks the nearest living enemy and chases or shoots it.
type brain struct {
	cfg   tuning
	rng   *rand.Rand
	state botState

	wanderYaw  float64
	wanderLeft int
	strafeDir  float64
	strafeLeft int

	kick mgl64.Vec2 // Yaw/pitch offset in radians, decaying
}

func newBrain(cfg tuning, rng *rand.Rand) *brain {
	return &brain{cfg: cfg, rng: rng, strafeDir: 1}
}

// addRecoil folds a yaw/pitch kick in degrees into the aim.
func (b *brain) addRecoil(deg mgl64.Vec2) {
	b.kick = b.kick.Add(mgl64.Vec2{mgl64.DegToRad(deg.X()), mgl64.DegToRad(deg.Y())})
}

func (b *brain) decide(self esync.NetworkId, world map[esync.NetworkId]network.EntityState, dt float64) decision {
	b.kick = b.kick.Mul(1 - gamemath.ResponseFactor(recoilRecovery, dt))

	me, ok := world[self]
	if !ok || !me.Alive() {
		b.state = stateWaiting
		return decision{}
	}

	pos := me.Transform.Position
	target, dist := nearestTarget(self, pos, world)

	switch {
	case target == nil:
		b.state = stateWander
	case dist > b.cfg.AttackRange:
		b.state = stateChase
	default:
		b.state = stateAttack
	}

	switch b.state {
	case stateWander:
		return b.wander()
	case stateChase:
		d := b.face(pos, target.Transform.Position)
		d.Move = mgl64.Vec2{0, 1}
		d.Sprint = dist > b.cfg.ChaseRange
		d.Target = target.ID
		return d
	default:
		d := b.face(pos, target.Transform.Position)
		d.Move = mgl64.Vec2{b.strafe(), 0}
		d.Target = target.ID
		if w := me.Weapon; w != nil && !w.Reloading {
			if w.CurrentAmmo > 0 {
				d.Fire = true
			} else {
				d.Reload = true
			}
		}
		return d
	}
}

func (b *brain) wander() decision {
	if b.wanderLeft <= 0 {
		b.wanderYaw = gamemath.Uniform(b.rng, -math.Pi, math.Pi)
		b.wanderLeft = b.cfg.WanderTicks
	}
	b.wanderLeft--
	return decision{Move: mgl64.Vec2{0, 1}, Yaw: b.wanderYaw, Jump: b.rng.IntN(60) == 0}
}

func (b *brain) strafe() float64 {
	if b.strafeLeft <= 0 {
		b.strafeDir = -b.strafeDir
		b.strafeLeft = b.cfg.StrafeTicks
	}
	b.strafeLeft--
	return b.strafeDir
}

// face aims from our eye at the target's eye, plus the current recoil kick.
func (b *brain) face(from, to mgl64.Vec3) decision {
	dir := to.Sub(from)
	planar := math.Hypot(dir.X(), dir.Z())
	yaw := math.Atan2(dir.X(), dir.Z())
	pitch := math.Atan2(dir.Y(), planar)

	yaw += b.kick.X()
	pitch = math.Max(-b.cfg.MaxAimPitch, math.Min(pitch+b.kick.Y(), b.cfg.MaxAimPitch))
	return decision{Yaw: yaw, Pitch: pitch}
}

func (b *brain) eye(feet mgl64.Vec3) mgl64.Vec3 {
	return feet.Add(gamemath.Up.Mul(b.cfg.EyeHeight))
}

func nearestTarget(self esync.NetworkId, pos mgl64.Vec3, world map[esync.NetworkId]network.EntityState) (*network.EntityState, float64) {
	var nearest *network.EntityState
	nearestDist := math.MaxFloat64

	for id, ent := range world {
		if id == self || !ent.Alive() {
			continue
		}
		dist := ent.Transform.Position.Sub(pos).Len()
		// Ties go to the lower id so the choice does not depend on map order.
		if dist < nearestDist || (dist == nearestDist && nearest != nil && id < nearest.ID) {
			e := ent
			nearest, nearestDist = &e, dist
		}
	}
	return nearest, nearestDist
}
