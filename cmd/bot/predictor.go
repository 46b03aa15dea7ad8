package main

import (
	"github.com/automoto/frontline-mp/network"
	"github.com/automoto/frontline-mp/shared/character"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/go-gl/mathgl/mgl64"
)

// snapThreshold is the prediction error, in world units, past which the local
// motor is moved to the server's position.
const snapThreshold = 1.0

// predictor runs the local player's motor ahead of the server and measures
// how far it drifts once the server acknowledges an input.
type predictor struct {
	world  character.CollisionWorld
	cfg    character.MovementConfig
	motor  *character.Motor
	buffer network.PredictionBuffer
	seq    uint32

	lastError float64
	snaps     int
}

func newPredictor(world character.CollisionWorld, cfg character.MovementConfig) *predictor {
	return &predictor{world: world, cfg: cfg}
}

// SetWorld swaps the collision world after a map change. Prediction is off
// until the next Reset, and stays off while world is nil.
func (p *predictor) SetWorld(world character.CollisionWorld) {
	p.world = world
	p.motor = nil
}

// Reset places a fresh motor at a spawn pose.
func (p *predictor) Reset(pos mgl64.Vec3, rot mgl64.Quat) {
	if p.world == nil {
		return
	}
	p.buffer.Reset()
	p.motor = character.NewMotor(p.world, p.cfg)
	p.motor.SetPosition(pos, true)
	p.motor.SetRotation(rot)
}

// Next stamps the next sequence number on input, steps the motor with it
// and records the predicted position.
func (p *predictor) Next(input messages.PlayerInput, dt float64) messages.PlayerInput {
	p.seq++
	input.Sequence = p.seq
	if p.motor == nil {
		return input
	}
	p.motor.Controller().UpdateInput(character.CharacterInput{
		Rotation:    input.Rotation,
		Move:        input.Move,
		Jump:        input.Jump,
		JumpSustain: input.JumpSustain,
		Crouch:      input.Crouch,
		Sprint:      input.Sprint,
	})
	p.motor.Tick(dt)
	p.buffer.Store(input, p.motor.Position)
	return input
}

// Reconcile compares the server's position for the last acknowledged input
// with what was predicted, and snaps when they are too far apart.
func (p *predictor) Reconcile(ack uint32, server mgl64.Vec3) {
	if p.motor == nil {
		return
	}
	rec, ok := p.buffer.Get(ack)
	if !ok {
		return
	}
	p.lastError = p.buffer.PredictionError(ack, server)
	if p.lastError <= snapThreshold {
		return
	}

	// Shift the motor and every unacknowledged prediction by the error so
	// later acks are measured against the corrected path.
	correction := server.Sub(rec.Predicted)
	p.buffer.Shift(ack, correction)
	p.motor.SetPosition(p.motor.Position.Add(correction), false)
	p.snaps++
}

func (p *predictor) Position() (mgl64.Vec3, bool) {
	if p.motor == nil {
		return mgl64.Vec3{}, false
	}
	return p.motor.Position, true
}
