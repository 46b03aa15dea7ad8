package arena

import (
	"math"

	"github.com/automoto/frontline-mp/shared/character"
	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/leveldata"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"github.com/solarlune/resolv"
)

// RayHit is the nearest thing a ray struck. Entity is zero for world hits.
// On a miss Point is the end of the ray and Normal is zero.
type RayHit struct {
	Hit      bool
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
	Entity   esync.NetworkId
}

// PlaceHitbox adds or moves the hitbox of a character.
func (a *Arena) PlaceHitbox(id esync.NetworkId, pos mgl64.Vec3, capsule character.Capsule) {
	a.mu.Lock()
	defer a.mu.Unlock()

	hb, ok := a.hitboxes[id]
	if !ok {
		obj := resolv.NewObject(0, 0, 1, 1, tagHitbox)
		hb = &hitbox{id: id, obj: obj}
		obj.Data = hb
		a.space.Add(obj)
		a.hitboxes[id] = hb
	}
	hb.pos, hb.capsule = pos, capsule
	setBounds(hb.obj, footprint(pos, capsule.Radius))
	hb.obj.Update()
}

// RemoveHitbox drops a character's hitbox.
func (a *Arena) RemoveHitbox(id esync.NetworkId) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hb, ok := a.hitboxes[id]; ok {
		a.space.Remove(hb.obj)
		delete(a.hitboxes, id)
	}
}

// Raycast casts a ray of length maxDist from origin along dir against solids
// and every hitbox except ignore's.
func (a *Arena) Raycast(origin, dir mgl64.Vec3, maxDist float64, ignore esync.NetworkId) RayHit {
	dir = gamemath.SafeNormalize(dir)
	miss := RayHit{Point: origin.Add(dir.Mul(maxDist)), Distance: maxDist}
	if dir.LenSqr() == 0 || maxDist <= 0 {
		miss.Point = origin
		return miss
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	end := miss.Point
	bounds := rect{origin.X(), origin.Z(), origin.X(), origin.Z()}.
		union(rect{end.X(), end.Z(), end.X(), end.Z()})

	best := miss
	for _, b := range a.blocksNear(bounds) {
		t, n, ok := b.intersect(origin, dir, best.Distance)
		if ok && t < best.Distance {
			best = RayHit{Hit: true, Point: origin.Add(dir.Mul(t)), Normal: n, Distance: t}
		}
	}

	for _, o := range a.candidates(bounds, tagHitbox) {
		hb, ok := o.Data.(*hitbox)
		if !ok || hb.id == ignore {
			continue
		}
		r := hb.capsule.Radius
		lo := mgl64.Vec3{hb.pos.X() - r, hb.pos.Y(), hb.pos.Z() - r}
		hi := mgl64.Vec3{hb.pos.X() + r, hb.pos.Y() + hb.capsule.Top(), hb.pos.Z() + r}
		t, n, ok := slab(origin, dir, lo, hi, 0, best.Distance)
		if ok && t < best.Distance {
			best = RayHit{Hit: true, Point: origin.Add(dir.Mul(t)), Normal: n, Distance: t, Entity: hb.id}
		}
	}
	return best
}

// intersect clips the ray against the block's box and, for ramps, the half
// space under its sloped top.
func (b *block) intersect(origin, dir mgl64.Vec3, maxT float64) (float64, mgl64.Vec3, bool) {
	lo := mgl64.Vec3{b.MinX, b.Bottom, b.MinZ}
	hi := mgl64.Vec3{b.MaxX, b.Top, b.MaxZ}
	if b.Ramp == leveldata.RampNone {
		return slab(origin, dir, lo, hi, 0, maxT)
	}

	tEnter, n, ok := slab(origin, dir, lo, hi, math.Inf(-1), maxT)
	if !ok {
		return 0, mgl64.Vec3{}, false
	}
	tExit, ok := slabExit(origin, dir, lo, hi)
	if !ok {
		return 0, mgl64.Vec3{}, false
	}

	// Points under the ramp satisfy (p - base) . normal <= 0.
	base := b.lowEdge()
	dist := origin.Sub(base).Dot(b.normal)
	denom := dir.Dot(b.normal)
	switch {
	case math.Abs(denom) < 1e-12:
		if dist > 0 {
			return 0, mgl64.Vec3{}, false
		}
	case denom < 0:
		if t := -dist / denom; t > tEnter {
			tEnter, n = t, b.normal
		}
	default:
		tExit = math.Min(tExit, -dist/denom)
	}

	if tEnter > tExit || tExit < 0 || tEnter > maxT {
		return 0, mgl64.Vec3{}, false
	}
	if tEnter < 0 {
		// Started inside.
		return 0, dir.Mul(-1), true
	}
	return tEnter, n, true
}

func (b *block) lowEdge() mgl64.Vec3 {
	switch b.Ramp {
	case leveldata.RampMinusX:
		return mgl64.Vec3{b.MaxX, b.Bottom, b.MinZ}
	case leveldata.RampMinusZ:
		return mgl64.Vec3{b.MinX, b.Bottom, b.MaxZ}
	}
	return mgl64.Vec3{b.MinX, b.Bottom, b.MinZ}
}

// slab intersects a ray with an axis-aligned box and returns the entry
// distance and the normal of the entry face. Entry distances below minT are
// reported as a hit at zero facing back along the ray.
func slab(origin, dir, lo, hi mgl64.Vec3, minT, maxT float64) (float64, mgl64.Vec3, bool) {
	tNear, tFar := math.Inf(-1), math.Inf(1)
	var n mgl64.Vec3
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}
		t1 := (lo[i] - origin[i]) / dir[i]
		t2 := (hi[i] - origin[i]) / dir[i]
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1
		}
		if t1 > tNear {
			tNear = t1
			n = mgl64.Vec3{}
			n[i] = sign
		}
		tFar = math.Min(tFar, t2)
	}
	if tNear > tFar || tFar < 0 || tNear > maxT {
		return 0, mgl64.Vec3{}, false
	}
	if tNear < minT {
		return 0, dir.Mul(-1), true
	}
	return tNear, n, true
}

func slabExit(origin, dir, lo, hi mgl64.Vec3) (float64, bool) {
	tFar := math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			continue
		}
		t1 := (lo[i] - origin[i]) / dir[i]
		t2 := (hi[i] - origin[i]) / dir[i]
		tFar = math.Min(tFar, math.Max(t1, t2))
	}
	return tFar, tFar >= 0
}
