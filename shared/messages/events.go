package messages

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
)

// HealthChangedEvent is sent only to the peer owning the damaged or healed
// character.
type HealthChangedEvent struct {
	Health    float64
	MaxHealth float64
}

// DeathEvent is sent only to the victim's peer.
type DeathEvent struct {
	KillerID esync.NetworkId // Zero if environmental
}

// SpawnRequest asks the server to (re)spawn the sender's character.
type SpawnRequest struct{}

// SpawnComplete is sent only to the spawned peer with its new pose.
type SpawnComplete struct {
	Position mgl64.Vec3
	Yaw      float64 // Radians around +Y, 0 faces +Z
}
