package messages

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
)

// FireRequest asks the server to fire the equipped weapon from the shooter's
// eye along Direction.
type FireRequest struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// ReloadRequest asks the server to reload the equipped weapon.
type ReloadRequest struct{}

// SwitchWeaponRequest asks the server to equip another weapon.
type SwitchWeaponRequest struct {
	WeaponID string
}

// ShotResult describes one resolved hitscan shot. HitEntityID is zero when the
// shot struck the world or nothing.
type ShotResult struct {
	Hit         bool
	Origin      mgl64.Vec3
	HitPoint    mgl64.Vec3
	HitNormal   mgl64.Vec3
	HitEntityID esync.NetworkId
}

// ShotFiredEvent is broadcast to every peer for tracer, impact and sound.
type ShotFiredEvent struct {
	ShooterID esync.NetworkId
	WeaponID  string
	Result    ShotResult
}

// EmptyClickEvent is broadcast when a shot was attempted on an empty magazine.
type EmptyClickEvent struct {
	ShooterID esync.NetworkId
	WeaponID  string
}

// ReloadStartedEvent is broadcast when a reload is accepted. The magazine is
// already full on the server when this is sent.
type ReloadStartedEvent struct {
	PlayerID     esync.NetworkId
	WeaponID     string
	MagazineSize int
}

// WeaponSwitchedEvent carries a weapon grant. It is broadcast for a fresh
// switch and sent to a single peer for late-join catch-up.
type WeaponSwitchedEvent struct {
	PlayerID     esync.NetworkId
	WeaponID     string
	MagazineSize int
	CurrentAmmo  int
}
