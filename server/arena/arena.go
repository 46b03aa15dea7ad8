// Package arena is the server's capsule collision provider. Solids live in a
// resolv space laid over the XZ plane for broad-phase queries; vertical extents,
// ramps and the narrow phase are handled here. It also tracks character
// hitboxes for hitscan raycasts.
package arena

import (
	"math"
	"sync"

	"github.com/automoto/frontline-mp/shared/character"
	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/leveldata"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"github.com/solarlune/resolv"
)

// Resolv tags
const (
	tagSolid  = "solid"
	tagHitbox = "hitbox"
	tagQuery  = "query"
)

// spaceScale is how many resolv units make one world unit. Resolv rounds an
// object's cell bounds to whole units, so world sizes are scaled up and every
// object is padded by one unit to reach the cell its far edge touches.
const spaceScale = 100

const (
	// skin is how far a surface may sit above the feet and still count as
	// under them.
	skin = 1e-4
	// contactOffset keeps a blocked capsule just outside the face it hit.
	contactOffset = 1e-3
)

// Config tunes ground classification and stepping.
type Config struct {
	MaxStableSlope      float64 // Degrees
	MaxStepHeight       float64
	GroundProbeDistance float64
	CellSize            int
}

// DefaultConfig matches the character tuning the game ships with.
func DefaultConfig() Config {
	return Config{
		MaxStableSlope:      60,
		MaxStepHeight:       0.5,
		GroundProbeDistance: 0.05,
		CellSize:            4,
	}
}

type block struct {
	leveldata.Solid
	obj    *resolv.Object
	normal mgl64.Vec3
	stable bool
}

type hitbox struct {
	id      esync.NetworkId
	obj     *resolv.Object
	pos     mgl64.Vec3
	capsule character.Capsule
}

// Arena is one loaded map. It is safe for concurrent use.
type Arena struct {
	mu       sync.Mutex
	cfg      Config
	name     string
	space    *resolv.Space
	query    *resolv.Object
	blocks   []*block
	hitboxes map[esync.NetworkId]*hitbox
	spawns   []leveldata.SpawnPoint
}

var _ character.CollisionWorld = (*Arena)(nil)

// New builds an arena from parsed level data.
func New(data *leveldata.LevelData, cfg Config) *Arena {
	if cfg.CellSize <= 0 {
		cfg.CellSize = DefaultConfig().CellSize
	}
	cell := cfg.CellSize * spaceScale
	w := int(math.Ceil(data.Width * spaceScale))
	h := int(math.Ceil(data.Depth * spaceScale))
	a := &Arena{
		cfg:      cfg,
		name:     data.Name,
		space:    resolv.NewSpace(max(w, cell), max(h, cell), cell, cell),
		hitboxes: make(map[esync.NetworkId]*hitbox),
		spawns:   append([]leveldata.SpawnPoint(nil), data.SpawnPoints...),
	}

	for _, s := range data.Solids {
		b := &block{Solid: s, normal: gamemath.Up}
		if axis, ok := s.Ramp.Axis(); ok {
			b.normal = gamemath.RampNormal(axis, s.Top-s.Bottom, b.run())
		}
		b.stable = gamemath.IsStableSlope(b.normal, gamemath.Up, cfg.MaxStableSlope)

		b.obj = resolv.NewObject(0, 0, 1, 1, tagSolid)
		setBounds(b.obj, rect{s.MinX, s.MinZ, s.MaxX, s.MaxZ})
		b.obj.Data = b
		a.space.Add(b.obj)
		a.blocks = append(a.blocks, b)
	}

	a.query = resolv.NewObject(0, 0, 1, 1, tagQuery)
	a.space.Add(a.query)
	return a
}

// Name is the map's name.
func (a *Arena) Name() string { return a.name }

// SpawnPoints returns the map's player spawns.
func (a *Arena) SpawnPoints() []leveldata.SpawnPoint {
	return append([]leveldata.SpawnPoint(nil), a.spawns...)
}

type rect struct {
	minX, minZ, maxX, maxZ float64
}

// setBounds places obj over r in space units. The caller runs Update.
func setBounds(obj *resolv.Object, r rect) {
	obj.X, obj.Y = r.minX*spaceScale, r.minZ*spaceScale
	obj.W = math.Max(r.maxX-r.minX, 0)*spaceScale + 1
	obj.H = math.Max(r.maxZ-r.minZ, 0)*spaceScale + 1
}

func footprint(pos mgl64.Vec3, radius float64) rect {
	return rect{pos.X() - radius, pos.Z() - radius, pos.X() + radius, pos.Z() + radius}
}

func (r rect) union(o rect) rect {
	return rect{
		math.Min(r.minX, o.minX), math.Min(r.minZ, o.minZ),
		math.Max(r.maxX, o.maxX), math.Max(r.maxZ, o.maxZ),
	}
}

// candidates runs the broad phase for every object with tag whose cells touch r.
func (a *Arena) candidates(r rect, tag string) []*resolv.Object {
	q := a.query
	setBounds(q, r)
	q.Update()

	check := q.Check(0, 0, tag)
	if check == nil {
		return nil
	}
	return check.ObjectsByTags(tag)
}

func (a *Arena) blocksNear(r rect) []*block {
	objs := a.candidates(r, tagSolid)
	out := make([]*block, 0, len(objs))
	for _, o := range objs {
		if b, ok := o.Data.(*block); ok {
			out = append(out, b)
		}
	}
	return out
}

func (b *block) run() float64 {
	switch b.Ramp {
	case leveldata.RampPlusX, leveldata.RampMinusX:
		return b.MaxX - b.MinX
	case leveldata.RampPlusZ, leveldata.RampMinusZ:
		return b.MaxZ - b.MinZ
	}
	return 0
}

// heightOver returns the highest point of the block's top within r, and
// whether r overlaps the block's footprint at all.
func (b *block) heightOver(r rect) (float64, bool) {
	ix := rect{
		math.Max(r.minX, b.MinX), math.Max(r.minZ, b.MinZ),
		math.Min(r.maxX, b.MaxX), math.Min(r.maxZ, b.MaxZ),
	}
	if ix.maxX-ix.minX <= 1e-6 || ix.maxZ-ix.minZ <= 1e-6 {
		return 0, false
	}

	var t float64
	switch b.Ramp {
	case leveldata.RampPlusX:
		t = (ix.maxX - b.MinX) / (b.MaxX - b.MinX)
	case leveldata.RampMinusX:
		t = (b.MaxX - ix.minX) / (b.MaxX - b.MinX)
	case leveldata.RampPlusZ:
		t = (ix.maxZ - b.MinZ) / (b.MaxZ - b.MinZ)
	case leveldata.RampMinusZ:
		t = (b.MaxZ - ix.minZ) / (b.MaxZ - b.MinZ)
	default:
		return b.Top, true
	}
	return b.Bottom + (b.Top-b.Bottom)*mgl64.Clamp(t, 0, 1), true
}

// ProbeGround implements character.CollisionWorld.
func (a *Arena) ProbeGround(pos mgl64.Vec3, capsule character.Capsule) character.GroundingStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, h := a.groundUnder(pos, capsule)
	if b == nil || pos.Y()-h > a.cfg.GroundProbeDistance {
		return character.GroundingStatus{}
	}
	return character.GroundingStatus{
		FoundAnyGround:   true,
		IsStableOnGround: b.stable,
		GroundNormal:     b.normal,
		GroundPoint:      mgl64.Vec3{pos.X(), h, pos.Z()},
	}
}

// groundUnder finds the highest surface at or below the feet.
func (a *Arena) groundUnder(pos mgl64.Vec3, capsule character.Capsule) (*block, float64) {
	fp := footprint(pos, capsule.Radius)
	var best *block
	bestH := math.Inf(-1)
	for _, b := range a.blocksNear(fp) {
		h, ok := b.heightOver(fp)
		if !ok || h > pos.Y()+skin {
			continue
		}
		if h > bestH {
			best, bestH = b, h
		}
	}
	return best, bestH
}

// Overlaps implements character.CollisionWorld.
func (a *Arena) Overlaps(pos mgl64.Vec3, capsule character.Capsule) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overlaps(pos, capsule)
}

func (a *Arena) overlaps(pos mgl64.Vec3, capsule character.Capsule) int {
	fp := footprint(pos, capsule.Radius)
	head := pos.Y() + capsule.Top()
	n := 0
	for _, b := range a.blocksNear(fp) {
		h, ok := b.heightOver(fp)
		if ok && h > pos.Y()+skin && b.Bottom < head-skin {
			n++
		}
	}
	return n
}

// Sweep implements character.CollisionWorld. Horizontal motion is resolved
// per axis in sub-steps no longer than half the radius. With snapToGround the
// capsule follows walkable ground: it steps up obstacles within the step
// height, ignores the vertical part of delta and drops onto stable ground
// within the step height at the end.
func (a *Arena) Sweep(pos mgl64.Vec3, capsule character.Capsule, delta mgl64.Vec3, snapToGround bool) character.SweepResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	var normals []mgl64.Vec3
	planar := math.Hypot(delta.X(), delta.Z())
	maxStep := math.Max(capsule.Radius*0.5, 0.05)
	steps := max(1, int(math.Ceil(planar/maxStep)))
	dx, dz := delta.X()/float64(steps), delta.Z()/float64(steps)

	p := pos
	for i := 0; i < steps; i++ {
		p = a.moveAxis(p, capsule, 0, dx, snapToGround, &normals)
		p = a.moveAxis(p, capsule, 2, dz, snapToGround, &normals)
	}

	if snapToGround {
		p = a.snapDown(p, capsule)
	} else {
		p = a.moveVertical(p, capsule, delta.Y(), &normals)
	}
	return character.SweepResult{Position: p, Normals: normals}
}

func (a *Arena) moveAxis(p mgl64.Vec3, capsule character.Capsule, axis int, d float64, snap bool, normals *[]mgl64.Vec3) mgl64.Vec3 {
	if d == 0 {
		return p
	}
	next := p
	next[axis] += d
	fp := footprint(next, capsule.Radius)
	head := p.Y() + capsule.Top()

	blocked := false
	limit := next[axis]
	stepTo := next.Y()
	for _, b := range a.blocksNear(fp) {
		h, ok := b.heightOver(fp)
		if !ok || h <= p.Y()+skin || b.Bottom >= head-skin {
			continue
		}

		if snap && b.stable && h-p.Y() <= a.cfg.MaxStepHeight {
			raised := next
			raised[1] = h
			if a.overlaps(raised, capsule) == 0 {
				stepTo = math.Max(stepTo, h)
				continue
			}
		}

		blocked = true
		lo, hi := b.MinX, b.MaxX
		if axis == 2 {
			lo, hi = b.MinZ, b.MaxZ
		}
		if d > 0 {
			limit = math.Min(limit, lo-capsule.Radius-contactOffset)
		} else {
			limit = math.Max(limit, hi+capsule.Radius+contactOffset)
		}
	}

	if blocked {
		// Back out by at most the contact offset.
		if d > 0 {
			next[axis] = math.Max(p[axis]-contactOffset, limit)
		} else {
			next[axis] = math.Min(p[axis]+contactOffset, limit)
		}
		var n mgl64.Vec3
		n[axis] = -math.Copysign(1, d)
		*normals = append(*normals, n)
		return next
	}

	next[1] = stepTo
	return next
}

func (a *Arena) snapDown(p mgl64.Vec3, capsule character.Capsule) mgl64.Vec3 {
	b, h := a.groundUnder(p, capsule)
	if b != nil && b.stable && p.Y()-h <= a.cfg.MaxStepHeight {
		p[1] = h
	}
	return p
}

func (a *Arena) moveVertical(p mgl64.Vec3, capsule character.Capsule, dy float64, normals *[]mgl64.Vec3) mgl64.Vec3 {
	if dy == 0 {
		return p
	}
	next := p
	next[1] += dy
	fp := footprint(p, capsule.Radius)

	if dy < 0 {
		b, h := a.groundUnder(p, capsule)
		if b != nil && h >= next.Y() {
			next[1] = h
			*normals = append(*normals, b.normal)
		}
		return next
	}

	head := p.Y() + capsule.Top()
	ceiling := math.Inf(1)
	for _, b := range a.blocksNear(fp) {
		if _, ok := b.heightOver(fp); !ok {
			continue
		}
		if b.Bottom >= head-skin && b.Bottom < next.Y()+capsule.Top() {
			ceiling = math.Min(ceiling, b.Bottom)
		}
	}
	if !math.IsInf(ceiling, 1) {
		next[1] = ceiling - capsule.Top() - contactOffset
		*normals = append(*normals, mgl64.Vec3{0, -1, 0})
	}
	return next
}
