// Package weapons holds weapon definitions and the catalog the server and
// clients look them up in by id.
package weapons

import (
	"errors"
	"time"

	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnknownWeapon is returned when a weapon id is empty or not in the catalog.
var ErrUnknownWeapon = errors.New("unknown weapon")

// Sound is a clip played by the client with a random pitch in
// [PitchMin, PitchMax] percent.
type Sound struct {
	Clip     netconfig.ClipID `mapstructure:"clip"`
	Volume   float64          `mapstructure:"volume"`
	PitchMin float64          `mapstructure:"pitchMin"`
	PitchMax float64          `mapstructure:"pitchMax"`
}

// Definition is the static data of one weapon.
type Definition struct {
	ID           string  `mapstructure:"id"`
	Damage       float64 `mapstructure:"damage"`
	MaxRange     float64 `mapstructure:"maxRange"`
	FireRateRPM  float64 `mapstructure:"fireRate"`
	MagazineSize int     `mapstructure:"magSize"`

	// Spread is the per-axis bound of the random aim offset, in units of the
	// aim direction's local right and up axes.
	Spread mgl64.Vec2 `mapstructure:"spread"`
	// Recoil is the per-axis bound of the yaw/pitch kick in degrees.
	Recoil mgl64.Vec2 `mapstructure:"recoil"`

	// ReloadTime locks fire and reload on the server. ReloadAnimationTime is
	// only how long clients animate it.
	ReloadTime          time.Duration `mapstructure:"reloadTime"`
	ReloadAnimationTime time.Duration `mapstructure:"reloadAnimationTime"`

	ShotSound   Sound `mapstructure:"shotSound"`
	ReloadSound Sound `mapstructure:"reloadSound"`
	EmptySound  Sound `mapstructure:"emptySound"`
}

// FireInterval is the minimum time between two shots.
func (d Definition) FireInterval() time.Duration {
	return gamemath.FireInterval(d.FireRateRPM)
}

// AnimationTime returns the cosmetic reload duration, falling back to the
// reload lock when none is configured.
func (d Definition) AnimationTime() time.Duration {
	if d.ReloadAnimationTime > 0 {
		return d.ReloadAnimationTime
	}
	return d.ReloadTime
}

func (d Definition) validate() error {
	switch {
	case d.ID == "":
		return errors.New("weapon id is empty")
	case d.MagazineSize <= 0:
		return errors.New("magazine size must be positive")
	case d.FireRateRPM <= 0:
		return errors.New("fire rate must be positive")
	case d.MaxRange <= 0:
		return errors.New("max range must be positive")
	case d.Damage < 0:
		return errors.New("damage must not be negative")
	case d.ReloadTime < 0 || d.ReloadAnimationTime < 0:
		return errors.New("reload times must not be negative")
	case subMillisecond(d.ReloadTime) || subMillisecond(d.ReloadAnimationTime):
		return errors.New("reload times need a unit such as 2s or 1500ms")
	}
	return nil
}

// subMillisecond catches unitless numbers decoded as nanoseconds.
func subMillisecond(d time.Duration) bool {
	return d > 0 && d < time.Millisecond
}
