package gamemath

import (
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// FireInterval converts a rounds-per-minute fire rate into the minimum time
// between two shots. A non-positive rate never allows a second shot.
func FireInterval(rpm float64) time.Duration {
	if rpm <= 0 {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(60 / rpm * float64(time.Second))
}

// Uniform returns a random value in [lo, hi).
func Uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

// ApplySpread offsets a unit aim direction by a bounded random amount on each
// of the aim's local right and up axes and renormalizes it.
func ApplySpread(dir mgl64.Vec3, spread mgl64.Vec2, rng *rand.Rand) mgl64.Vec3 {
	dir = SafeNormalize(dir)
	if dir.LenSqr() == 0 {
		return dir
	}
	right := SafeNormalize(Up.Cross(dir))
	if right.LenSqr() == 0 {
		// Aiming straight up or down.
		right = mgl64.Vec3{1, 0, 0}
	}
	localUp := dir.Cross(right)

	ox := Uniform(rng, -spread.X(), spread.X())
	oy := Uniform(rng, -spread.Y(), spread.Y())
	return SafeNormalize(dir.Add(right.Mul(ox)).Add(localUp.Mul(oy)))
}

// RecoilOffset returns the positive yaw/pitch kick a shot applies to the
// shooter's aim.
func RecoilOffset(recoil mgl64.Vec2, rng *rand.Rand) mgl64.Vec2 {
	return mgl64.Vec2{
		Uniform(rng, 0, recoil.X()),
		Uniform(rng, 0, recoil.Y()),
	}
}
