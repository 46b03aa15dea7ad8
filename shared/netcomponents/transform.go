package netcomponents

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

// NetTransformData is a character's feet position and heading.
type NetTransformData struct {
	Position mgl64.Vec3
	Yaw      float64 // Radians around +Y, 0 faces +Z
}

var NetTransform = donburi.NewComponentType[NetTransformData]()

// LerpNetTransform interpolates between two transforms, turning the short way
// around.
func LerpNetTransform(from, to NetTransformData, t float64) *NetTransformData {
	return &NetTransformData{
		Position: from.Position.Add(to.Position.Sub(from.Position).Mul(t)),
		Yaw:      lerpAngle(from.Yaw, to.Yaw, t),
	}
}

func lerpAngle(from, to, t float64) float64 {
	d := math.Remainder(to-from, 2*math.Pi)
	return from + d*t
}
