package messages

import (
	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// PlayerInput is sent from client to server every client tick with the
// player's movement intent. Used for server-side movement and client-side
// prediction reconciliation.
type PlayerInput struct {
	Sequence    uint32     // Incrementing ID for reconciliation
	Rotation    mgl64.Quat // Look rotation; the character turns to its yaw
	Move        mgl64.Vec2 // X strafe, Y forward, magnitude <= 1
	Jump        bool       // Edge: pressed this tick
	JumpSustain bool       // Held
	Crouch      netconfig.CrouchInput
	Sprint      bool
	Timestamp   int64 // Client timestamp (Unix ms)
}

// NewPlayerInput creates an idle PlayerInput facing forward.
func NewPlayerInput(seq uint32) PlayerInput {
	return PlayerInput{
		Sequence: seq,
		Rotation: mgl64.QuatIdent(),
	}
}
