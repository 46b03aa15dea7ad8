package gamemath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const epsilon = 1e-9

var (
	// Up is the world up axis. Characters are always upright.
	Up = mgl64.Vec3{0, 1, 0}
	// Forward is the local forward axis of an unrotated character.
	Forward = mgl64.Vec3{0, 0, 1}
)

// ProjectOnPlane removes the component of v along normal.
func ProjectOnPlane(v, normal mgl64.Vec3) mgl64.Vec3 {
	sqr := normal.LenSqr()
	if sqr < epsilon {
		return v
	}
	return v.Sub(normal.Mul(v.Dot(normal) / sqr))
}

// SafeNormalize returns v scaled to unit length, or the zero vector when v is
// too short to have a direction.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// ClampMagnitude shortens v to max if it is longer.
func ClampMagnitude(v mgl64.Vec3, max float64) mgl64.Vec3 {
	l := v.Len()
	if l > max && l > epsilon {
		return v.Mul(max / l)
	}
	return v
}

// TangentToSurface returns the unit direction along the surface that keeps the
// heading of direction as seen from above.
func TangentToSurface(direction, surfaceNormal, up mgl64.Vec3) mgl64.Vec3 {
	right := direction.Cross(up)
	return SafeNormalize(surfaceNormal.Cross(right))
}

// ResponseFactor converts an exponential response rate into a per-step blend
// factor that is independent of the step length.
func ResponseFactor(response, dt float64) float64 {
	return 1 - math.Exp(-response*dt)
}

// Lerp blends a toward b by t.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// PlanarSpeed is the length of v once the vertical component is removed.
func PlanarSpeed(v mgl64.Vec3) float64 {
	return ProjectOnPlane(v, Up).Len()
}

// YawRotation builds the upright rotation that faces yaw radians around Up.
func YawRotation(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, Up)
}

// YawOf returns the heading of the planar forward vector of q.
func YawOf(q mgl64.Quat) float64 {
	f := ProjectOnPlane(q.Rotate(Forward), Up)
	return math.Atan2(f.X(), f.Z())
}

// LookRotation returns the upright rotation facing forward. The second return
// is false when forward has no planar component.
func LookRotation(forward mgl64.Vec3) (mgl64.Quat, bool) {
	planar := ProjectOnPlane(forward, Up)
	if planar.LenSqr() < epsilon {
		return mgl64.QuatIdent(), false
	}
	return YawRotation(math.Atan2(planar.X(), planar.Z())), true
}
