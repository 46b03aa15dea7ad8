package core

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/automoto/frontline-mp/shared/character"
	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/automoto/frontline-mp/shared/netcomponents"
	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/automoto/frontline-mp/shared/weapons"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"github.com/yohamta/donburi"
)

// HealthState is a player's authoritative health. Health stays in
// [0, MaxHealth].
type HealthState struct {
	Health    float64
	MaxHealth float64
	Dead      bool
}

// WeaponState is a player's authoritative weapon. Ammo stays in
// [0, def.MagazineSize].
type WeaponState struct {
	def         weapons.Definition
	equipped    bool
	ammo        int
	reloadUntil time.Time
	lastFired   time.Time
	lastSwitch  time.Time
}

func (w *WeaponState) reloading(now time.Time) bool {
	return now.Before(w.reloadUntil)
}

func (w *WeaponState) net(now time.Time) netcomponents.NetWeaponData {
	if !w.equipped {
		return netcomponents.NetWeaponData{}
	}
	return netcomponents.NetWeaponData{
		WeaponID:     w.def.ID,
		MagazineSize: w.def.MagazineSize,
		CurrentAmmo:  w.ammo,
		Reloading:    w.reloading(now),
	}
}

// Player is the server-side state of one joined client. It is not a donburi
// component and is never synced as a whole; the loop copies the replicated
// parts into the player's entity each tick. Fields below mu are guarded by it.
type Player struct {
	ID     esync.NetworkId
	PeerID string
	Name   string
	Entity donburi.Entity

	mu       sync.Mutex
	motor    *character.Motor
	health   HealthState
	weapon   WeaponState
	spawned  bool
	removed  bool // Disconnected; never placed in the arena again
	input    messages.PlayerInput
	hasInput bool
	lastSeq  uint32
}

func newPlayer(id esync.NetworkId, peerID, name string, motor *character.Motor, maxHealth float64) *Player {
	return &Player{
		ID:     id,
		PeerID: peerID,
		Name:   name,
		motor:  motor,
		health: HealthState{Health: maxHealth, MaxHealth: maxHealth},
	}
}

// QueueInput stores input for the next tick. Inputs arriving between two ticks
// are merged: the newest snapshot wins, but a jump press is kept and crouch
// toggles cancel out in pairs. Stale sequences are dropped.
func (p *Player) QueueInput(in messages.PlayerInput) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if in.Sequence != 0 && in.Sequence <= p.lastSeq {
		return
	}
	if p.hasInput {
		if in.Sequence != 0 && in.Sequence <= p.input.Sequence {
			return
		}
		in.Jump = in.Jump || p.input.Jump
		if p.input.Crouch == netconfig.CrouchToggle {
			if in.Crouch == netconfig.CrouchToggle {
				in.Crouch = netconfig.CrouchNone
			} else {
				in.Crouch = netconfig.CrouchToggle
			}
		}
	}
	p.input = in
	p.hasInput = true
}

// applyInput feeds the pending input to the controller. Caller holds mu.
func (p *Player) applyInput() {
	if !p.hasInput {
		return
	}
	in := p.input
	p.motor.Controller().UpdateInput(character.CharacterInput{
		Rotation:    in.Rotation,
		Move:        in.Move,
		Jump:        in.Jump,
		JumpSustain: in.JumpSustain,
		Crouch:      in.Crouch,
		Sprint:      in.Sprint,
	})
	p.lastSeq = in.Sequence
	p.hasInput = false
}

// alive reports whether the player is spawned and not dead. Caller holds mu.
func (p *Player) alive() bool {
	return p.spawned && !p.health.Dead && !p.removed
}

// PlayerSnapshot is a consistent copy of a player's state.
type PlayerSnapshot struct {
	Position     mgl64.Vec3
	Velocity     mgl64.Vec3
	Yaw          float64
	Stance       netconfig.Stance
	Grounded     bool
	Alive        bool
	LastSequence uint32
	Health       HealthState
	Weapon       netcomponents.NetWeaponData
}

// Snapshot copies the player's state as of now.
func (p *Player) Snapshot(now time.Time) PlayerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot(now)
}

func (p *Player) snapshot(now time.Time) PlayerSnapshot {
	state := p.motor.Controller().State()
	return PlayerSnapshot{
		Position:     p.motor.Position,
		Velocity:     p.motor.Velocity,
		Yaw:          gamemath.YawOf(p.motor.Rotation),
		Stance:       state.Stance,
		Grounded:     state.Grounded,
		Alive:        p.alive(),
		LastSequence: p.lastSeq,
		Health:       p.health,
		Weapon:       p.weapon.net(now),
	}
}

// Registry indexes joined players by network id and by peer.
type Registry struct {
	mu     sync.RWMutex
	byID   map[esync.NetworkId]*Player
	byPeer map[string]*Player
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[esync.NetworkId]*Player),
		byPeer: make(map[string]*Player),
	}
}

func (r *Registry) Add(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	if p.PeerID != "" {
		r.byPeer[p.PeerID] = p
	}
}

// RemovePeer drops the player owned by peerID and returns it.
func (r *Registry) RemovePeer(peerID string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byPeer[peerID]
	if !ok {
		return nil, false
	}
	delete(r.byPeer, peerID)
	delete(r.byID, p.ID)
	return p, true
}

func (r *Registry) Get(id esync.NetworkId) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

func (r *Registry) ByPeer(peerID string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byPeer[peerID]
	return p, ok
}

// All returns every player ordered by network id.
func (r *Registry) All() []*Player {
	r.mu.RLock()
	out := make([]*Player, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Player) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
