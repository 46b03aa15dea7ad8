package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/automoto/frontline-mp/shared/weapons"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
)

// Rejection reasons. They are logged and counted but never sent to clients.
const (
	ReasonInvalidAim   = "invalid_aim"
	ReasonNoWeapon     = "no_weapon"
	ReasonNotAlive     = "not_alive"
	ReasonReloading    = "reloading"
	ReasonFireRate     = "fire_rate"
	ReasonEmpty        = "empty"
	ReasonMagazineFull = "magazine_full"
)

var (
	ErrSwitchCooldown  = errors.New("weapon switch on cooldown")
	ErrAlreadyEquipped = errors.New("weapon already equipped")
)

// maxOriginDrift is how far a client's shot origin may be from the server's
// eye position before the server substitutes its own.
const maxOriginDrift = 2.0

// Raycaster resolves hitscan shots against the world and character hitboxes.
type Raycaster interface {
	Raycast(origin, dir mgl64.Vec3, maxDist float64, ignore esync.NetworkId) arena.RayHit
}

// FireOutcome is the server-side result of a fire request.
type FireOutcome struct {
	Accepted bool
	Empty    bool
	Reason   string
	Ammo     int
	Result   messages.ShotResult
	Damage   DamageResult
}

// ReloadOutcome is the server-side result of a reload request.
type ReloadOutcome struct {
	Accepted bool
	Reason   string
	Until    time.Time
}

// WeaponOption configures a WeaponAuthority.
type WeaponOption func(*WeaponAuthority)

// WithClock replaces the wall clock.
func WithClock(c Clock) WeaponOption {
	return func(w *WeaponAuthority) { w.clock = c }
}

// WithRand sets the spread source.
func WithRand(r *rand.Rand) WeaponOption {
	return func(w *WeaponAuthority) { w.rng = r }
}

// WithSwitchCooldown sets the minimum time between two switch requests.
func WithSwitchCooldown(d time.Duration) WeaponOption {
	return func(w *WeaponAuthority) { w.switchCooldown = d }
}

// WeaponAuthority validates and executes fire, reload and switch requests.
// Validation and the ammo/timestamp update it guards happen under the
// shooter's lock; the raycast and damage run after it is released.
type WeaponAuthority struct {
	catalog        *weapons.Catalog
	players        *Registry
	health         *HealthAuthority
	world          Raycaster
	peers          *PeerSet
	metrics        *Metrics
	log            zerolog.Logger
	clock          Clock
	switchCooldown time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewWeaponAuthority(catalog *weapons.Catalog, players *Registry, health *HealthAuthority, world Raycaster,
	peers *PeerSet, metrics *Metrics, log zerolog.Logger, opts ...WeaponOption) *WeaponAuthority {
	w := &WeaponAuthority{
		catalog: catalog,
		players: players,
		health:  health,
		world:   world,
		peers:   peers,
		metrics: metrics,
		log:     log.With().Str("component", "combat").Logger(),
		clock:   SystemClock,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RequestFire runs the fire pipeline for p: equipped, alive, not reloading,
// fire interval elapsed, ammo left. An empty magazine still consumes the
// fire interval and broadcasts an empty click.
func (w *WeaponAuthority) RequestFire(p *Player, origin, dir mgl64.Vec3) FireOutcome {
	dir = gamemath.SafeNormalize(dir)
	if dir.LenSqr() == 0 {
		return w.rejectFire(p, ReasonInvalidAim)
	}

	p.mu.Lock()
	now := w.clock.Now()
	ws := &p.weapon
	var reason string
	switch {
	case !ws.equipped:
		reason = ReasonNoWeapon
	case !p.alive():
		reason = ReasonNotAlive
	case ws.reloading(now):
		reason = ReasonReloading
	case !ws.lastFired.IsZero() && now.Sub(ws.lastFired) < ws.def.FireInterval():
		reason = ReasonFireRate
	}
	if reason != "" {
		p.mu.Unlock()
		return w.rejectFire(p, reason)
	}

	def := ws.def
	ws.lastFired = now
	if ws.ammo <= 0 {
		p.mu.Unlock()

		inc(w.metrics.emptyClicks)
		w.log.Debug().Uint("player", uint(p.ID)).Str("weapon", def.ID).Msg("empty click")
		w.peers.Broadcast(messages.EmptyClickEvent{ShooterID: p.ID, WeaponID: def.ID})
		return FireOutcome{Empty: true, Reason: ReasonEmpty}
	}
	ws.ammo--
	ammo := ws.ammo
	origin = w.shotOrigin(p, origin)
	p.mu.Unlock()

	aim := w.spread(dir, def.Spread)
	hit := w.world.Raycast(origin, aim, def.MaxRange, p.ID)
	result := messages.ShotResult{
		Hit:         hit.Hit,
		Origin:      origin,
		HitPoint:    hit.Point,
		HitNormal:   hit.Normal,
		HitEntityID: hit.Entity,
	}

	var dmg DamageResult
	if hit.Entity != 0 {
		var err error
		dmg, err = w.health.ApplyDamage(DamageEvent{SourceID: p.ID, VictimID: hit.Entity, Amount: def.Damage})
		if err != nil {
			w.log.Error().Err(err).Uint("player", uint(p.ID)).Msg("apply damage")
		}
	}

	inc(w.metrics.shotsFired)
	w.peers.Broadcast(messages.ShotFiredEvent{ShooterID: p.ID, WeaponID: def.ID, Result: result})
	return FireOutcome{Accepted: true, Ammo: ammo, Result: result, Damage: dmg}
}

func (w *WeaponAuthority) rejectFire(p *Player, reason string) FireOutcome {
	w.metrics.rejected(reason)
	w.log.Debug().Uint("player", uint(p.ID)).Str("reason", reason).Msg("fire rejected")
	return FireOutcome{Reason: reason}
}

// shotOrigin keeps the client's origin unless it strays from the character's
// eye. Caller holds p.mu.
func (w *WeaponAuthority) shotOrigin(p *Player, origin mgl64.Vec3) mgl64.Vec3 {
	eye := p.motor.Position.Add(gamemath.Up.Mul(p.motor.Capsule.Top()))
	if origin.Sub(eye).Len() > maxOriginDrift {
		return eye
	}
	return origin
}

func (w *WeaponAuthority) spread(dir mgl64.Vec3, spread mgl64.Vec2) mgl64.Vec3 {
	w.rngMu.Lock()
	defer w.rngMu.Unlock()
	return gamemath.ApplySpread(dir, spread, w.rng)
}

// RequestReload refills the magazine at once and locks fire and reload for
// the weapon's reload time.
func (w *WeaponAuthority) RequestReload(p *Player) ReloadOutcome {
	p.mu.Lock()
	now := w.clock.Now()
	ws := &p.weapon
	var reason string
	switch {
	case !ws.equipped:
		reason = ReasonNoWeapon
	case !p.alive():
		reason = ReasonNotAlive
	case ws.reloading(now):
		reason = ReasonReloading
	case ws.ammo >= ws.def.MagazineSize:
		reason = ReasonMagazineFull
	}
	if reason != "" {
		p.mu.Unlock()
		w.log.Debug().Uint("player", uint(p.ID)).Str("reason", reason).Msg("reload rejected")
		return ReloadOutcome{Reason: reason}
	}

	ws.ammo = ws.def.MagazineSize
	ws.reloadUntil = now.Add(ws.def.ReloadTime)
	def, until := ws.def, ws.reloadUntil
	p.mu.Unlock()

	inc(w.metrics.reloads)
	w.peers.Broadcast(messages.ReloadStartedEvent{
		PlayerID:     p.ID,
		WeaponID:     def.ID,
		MagazineSize: def.MagazineSize,
	})
	return ReloadOutcome{Accepted: true, Until: until}
}

// RequestSwitch equips weaponID with a full magazine, cancelling any reload,
// and broadcasts the grant.
func (w *WeaponAuthority) RequestSwitch(p *Player, weaponID string) error {
	def, err := w.catalog.Lookup(weaponID)
	if err != nil {
		w.log.Debug().Uint("player", uint(p.ID)).Str("weapon", weaponID).Msg("switch rejected")
		return err
	}
	now := w.clock.Now()

	p.mu.Lock()
	ws := &p.weapon
	switch {
	case ws.equipped && ws.def.ID == def.ID:
		err = ErrAlreadyEquipped
	case !ws.lastSwitch.IsZero() && now.Sub(ws.lastSwitch) < w.switchCooldown:
		err = ErrSwitchCooldown
	}
	if err != nil {
		p.mu.Unlock()
		w.log.Debug().Uint("player", uint(p.ID)).Str("weapon", weaponID).Err(err).Msg("switch rejected")
		return err
	}
	w.equip(p, def)
	ws.lastSwitch = now
	evt := w.switched(p)
	p.mu.Unlock()

	w.peers.Broadcast(evt)
	return nil
}

// Grant equips weaponID without the switch cooldown, e.g. on join.
func (w *WeaponAuthority) Grant(p *Player, weaponID string) error {
	def, err := w.catalog.Lookup(weaponID)
	if err != nil {
		return fmt.Errorf("grant weapon: %w", err)
	}

	p.mu.Lock()
	w.equip(p, def)
	evt := w.switched(p)
	p.mu.Unlock()

	w.peers.Broadcast(evt)
	return nil
}

// CatchUp sends every other player's current weapon to a newly joined peer.
func (w *WeaponAuthority) CatchUp(joined *Player) {
	for _, other := range w.players.All() {
		if other == joined {
			continue
		}
		other.mu.Lock()
		equipped := other.weapon.equipped
		evt := w.switched(other)
		other.mu.Unlock()

		if equipped {
			w.peers.sendTo(joined.PeerID, evt)
		}
	}
}

// refill tops up the magazine and drops any reload lock, e.g. on respawn.
func (w *WeaponAuthority) refill(p *Player) {
	p.mu.Lock()
	if p.weapon.equipped {
		p.weapon.ammo = p.weapon.def.MagazineSize
		p.weapon.reloadUntil = time.Time{}
	}
	p.mu.Unlock()
}

// equip installs def. Caller holds p.mu.
func (w *WeaponAuthority) equip(p *Player, def weapons.Definition) {
	p.weapon.def = def
	p.weapon.equipped = true
	p.weapon.ammo = def.MagazineSize
	p.weapon.reloadUntil = time.Time{}
}

// switched describes p's weapon. Caller holds p.mu.
func (w *WeaponAuthority) switched(p *Player) messages.WeaponSwitchedEvent {
	return messages.WeaponSwitchedEvent{
		PlayerID:     p.ID,
		WeaponID:     p.weapon.def.ID,
		MagazineSize: p.weapon.def.MagazineSize,
		CurrentAmmo:  p.weapon.ammo,
	}
}
