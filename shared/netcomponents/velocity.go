package netcomponents

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

type NetVelocityData struct {
	Velocity mgl64.Vec3
}

var NetVelocity = donburi.NewComponentType[NetVelocityData]()

// LerpNetVelocity interpolates between two velocities
func LerpNetVelocity(from, to NetVelocityData, t float64) *NetVelocityData {
	return &NetVelocityData{
		Velocity: from.Velocity.Add(to.Velocity.Sub(from.Velocity).Mul(t)),
	}
}
