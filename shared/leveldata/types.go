// Package leveldata provides TMX level parsing shared between client and server.
// Maps are authored top-down: the TMX x axis is world X, the TMX y axis is
// world Z, and heights come from object properties. It has no dependencies on
// donburi or resolv; pure data only.
package leveldata

import "github.com/go-gl/mathgl/mgl64"

// UnitsPerPixel converts TMX pixel coordinates into world units.
const UnitsPerPixel = 1.0 / 8

// LevelData holds all collision-relevant data parsed from a TMX level file.
type LevelData struct {
	Name        string
	Solids      []Solid
	SpawnPoints []SpawnPoint
	Width       float64 // World X extent
	Depth       float64 // World Z extent
}

// RampDir is the horizontal direction in which a ramp rises.
type RampDir string

const (
	RampNone   RampDir = ""
	RampPlusX  RampDir = "+x"
	RampMinusX RampDir = "-x"
	RampPlusZ  RampDir = "+z"
	RampMinusZ RampDir = "-z"
)

// Axis returns the unit direction of the ramp's rise, or false for RampNone
// and unknown values.
func (r RampDir) Axis() (mgl64.Vec3, bool) {
	switch r {
	case RampPlusX:
		return mgl64.Vec3{1, 0, 0}, true
	case RampMinusX:
		return mgl64.Vec3{-1, 0, 0}, true
	case RampPlusZ:
		return mgl64.Vec3{0, 0, 1}, true
	case RampMinusZ:
		return mgl64.Vec3{0, 0, -1}, true
	}
	return mgl64.Vec3{}, false
}

// Solid is an axis-aligned block. A ramp's walkable top rises linearly from
// Bottom at its low edge to Top at its high edge along Ramp.
type Solid struct {
	MinX, MinZ float64
	MaxX, MaxZ float64
	Bottom     float64
	Top        float64
	Ramp       RampDir
}

// SpawnPoint represents a player spawn location.
type SpawnPoint struct {
	Position mgl64.Vec3
	Yaw      float64 // Radians
	Index    int
}
