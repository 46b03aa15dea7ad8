package gamemath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SlopeAngle returns the angle in degrees between a surface normal and up.
func SlopeAngle(normal, up mgl64.Vec3) float64 {
	n := SafeNormalize(normal)
	if n.LenSqr() == 0 {
		return 90
	}
	cos := mgl64.Clamp(n.Dot(SafeNormalize(up)), -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}

// IsStableSlope reports whether a character can stand on a surface with the
// given normal without sliding off.
func IsStableSlope(normal, up mgl64.Vec3, maxStableAngle float64) bool {
	return SlopeAngle(normal, up) <= maxStableAngle
}

// ObstructionNormal is the horizontal direction pointing out of an unstable
// slope. Air control projects movement onto the plane of this normal so a
// character cannot climb a steep surface mid-air.
func ObstructionNormal(up, groundNormal mgl64.Vec3) mgl64.Vec3 {
	return SafeNormalize(up.Cross(up.Cross(groundNormal)))
}

// RampNormal returns the surface normal of a ramp that rises by rise over run
// in the horizontal direction dir.
func RampNormal(dir mgl64.Vec3, rise, run float64) mgl64.Vec3 {
	d := SafeNormalize(ProjectOnPlane(dir, Up))
	if run <= 0 || d.LenSqr() == 0 {
		return Up
	}
	return SafeNormalize(Up.Mul(run).Sub(d.Mul(rise)))
}
