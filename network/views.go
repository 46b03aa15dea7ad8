package network

import (
	"image/color"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/automoto/frontline-mp/shared/netcomponents"
	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/automoto/frontline-mp/shared/weapons"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
)

const (
	tracerWidth    = 0.02
	tracerDuration = 50 * time.Millisecond

	// DefaultHealthLag is how quickly the displayed health catches up, per second.
	DefaultHealthLag = 8.0
)

var TracerColor = color.RGBA{R: 255, G: 220, B: 120, A: 255}

// Cosmetics receives fire-and-forget presentation calls. Nothing it returns
// feeds back into game state.
type Cosmetics interface {
	PlaySound(clip netconfig.ClipID, volume, pitchMin, pitchMax float64)
	DrawLine(start, end mgl64.Vec3, c color.RGBA, width float64, duration time.Duration)
}

// NopCosmetics discards every call. Used by headless clients.
type NopCosmetics struct{}

func (NopCosmetics) PlaySound(netconfig.ClipID, float64, float64, float64)               {}
func (NopCosmetics) DrawLine(mgl64.Vec3, mgl64.Vec3, color.RGBA, float64, time.Duration) {}

// HUDState is what a weapon HUD shows for the local player.
type HUDState struct {
	WeaponID       string
	MagazineSize   int
	CurrentAmmo    int
	Reloading      bool    // Server lock, as replicated
	ReloadProgress float64 // Cosmetic animation, 0..1; 1 when idle
}

// WeaponView is the client's read-only mirror of weapon state. The server
// copy always wins; the view only adds recoil and the reload animation.
type WeaponView struct {
	mu      sync.Mutex
	log     zerolog.Logger
	catalog *weapons.Catalog
	fx      Cosmetics
	rng     *rand.Rand

	local    esync.NetworkId
	hud      netcomponents.NetWeaponData
	equipped map[esync.NetworkId]string

	animTotal time.Duration
	animLeft  time.Duration
	recoil    mgl64.Vec2
}

func NewWeaponView(catalog *weapons.Catalog, fx Cosmetics, rng *rand.Rand, log zerolog.Logger) *WeaponView {
	if fx == nil {
		fx = NopCosmetics{}
	}
	return &WeaponView{
		log:      log.With().Str("component", "weapon_view").Logger(),
		catalog:  catalog,
		fx:       fx,
		rng:      rng,
		equipped: make(map[esync.NetworkId]string),
	}
}

// SetLocal names the player this client owns.
func (v *WeaponView) SetLocal(id esync.NetworkId) {
	v.mu.Lock()
	v.local = id
	v.mu.Unlock()
}

// ApplyReplicated overwrites the HUD copy with the server's state.
func (v *WeaponView) ApplyReplicated(data netcomponents.NetWeaponData) {
	v.mu.Lock()
	v.hud = data
	v.mu.Unlock()
}

func (v *WeaponView) OnWeaponSwitched(evt messages.WeaponSwitchedEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.equipped[evt.PlayerID] = evt.WeaponID
	if evt.PlayerID != v.local {
		return
	}
	v.hud = netcomponents.NetWeaponData{
		WeaponID:     evt.WeaponID,
		MagazineSize: evt.MagazineSize,
		CurrentAmmo:  evt.CurrentAmmo,
	}
	v.animLeft, v.animTotal = 0, 0
}

// OnShotFired draws the tracer, plays the shot sound and, for our own shots,
// accumulates a recoil kick.
func (v *WeaponView) OnShotFired(evt messages.ShotFiredEvent) {
	def, ok := v.lookup(evt.WeaponID)
	if !ok {
		return
	}
	v.play(def.ShotSound)
	v.fx.DrawLine(evt.Result.Origin, evt.Result.HitPoint, TracerColor, tracerWidth, tracerDuration)

	v.mu.Lock()
	defer v.mu.Unlock()
	if evt.ShooterID == v.local {
		v.recoil = v.recoil.Add(gamemath.RecoilOffset(def.Recoil, v.rng))
	}
}

func (v *WeaponView) OnEmptyClick(evt messages.EmptyClickEvent) {
	if def, ok := v.lookup(evt.WeaponID); ok {
		v.play(def.EmptySound)
	}
}

// OnReloadStarted starts the reload animation for the local player. It runs
// for the weapon's animation time whatever the server's lock is.
func (v *WeaponView) OnReloadStarted(evt messages.ReloadStartedEvent) {
	def, ok := v.lookup(evt.WeaponID)
	if !ok {
		return
	}
	v.play(def.ReloadSound)

	v.mu.Lock()
	defer v.mu.Unlock()
	if evt.PlayerID != v.local {
		return
	}
	v.animTotal = def.AnimationTime()
	v.animLeft = v.animTotal
}

// Update advances the reload animation.
func (v *WeaponView) Update(dt time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.animLeft = max(v.animLeft-dt, 0)
}

// TakeRecoil returns the yaw/pitch kick in degrees accumulated since the last
// call and resets it.
func (v *WeaponView) TakeRecoil() mgl64.Vec2 {
	v.mu.Lock()
	defer v.mu.Unlock()
	r := v.recoil
	v.recoil = mgl64.Vec2{}
	return r
}

func (v *WeaponView) HUD() HUDState {
	v.mu.Lock()
	defer v.mu.Unlock()

	progress := 1.0
	if v.animTotal > 0 && v.animLeft > 0 {
		progress = 1 - float64(v.animLeft)/float64(v.animTotal)
	}
	return HUDState{
		WeaponID:       v.hud.WeaponID,
		MagazineSize:   v.hud.MagazineSize,
		CurrentAmmo:    v.hud.CurrentAmmo,
		Reloading:      v.hud.Reloading,
		ReloadProgress: progress,
	}
}

// Animating reports whether the reload animation is still playing.
func (v *WeaponView) Animating() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.animLeft > 0
}

// WeaponOf returns the weapon another player was last seen holding, for
// third-person models.
func (v *WeaponView) WeaponOf(id esync.NetworkId) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.equipped[id]
	return w, ok
}

// Forget drops a player that left.
func (v *WeaponView) Forget(id esync.NetworkId) {
	v.mu.Lock()
	delete(v.equipped, id)
	v.mu.Unlock()
}

func (v *WeaponView) lookup(id string) (weapons.Definition, bool) {
	def, err := v.catalog.Lookup(id)
	if err != nil {
		v.log.Debug().Err(err).Str("weapon", id).Msg("event for unknown weapon")
		return weapons.Definition{}, false
	}
	return def, true
}

func (v *WeaponView) play(s weapons.Sound) {
	if s.Clip == netconfig.ClipNone {
		return
	}
	v.fx.PlaySound(s.Clip, s.Volume, s.PitchMin, s.PitchMax)
}

// HealthView smooths the health bar toward the value the server last sent.
type HealthView struct {
	mu        sync.Mutex
	lag       float64
	target    float64
	displayed float64
	max       float64
	seen      bool

	dead   bool
	killer esync.NetworkId
}

func NewHealthView(lag float64) *HealthView {
	if lag <= 0 {
		lag = DefaultHealthLag
	}
	return &HealthView{lag: lag}
}

// OnHealthChanged records the authoritative value. The first update snaps.
func (h *HealthView) OnHealthChanged(evt messages.HealthChangedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.target, h.max = evt.Health, evt.MaxHealth
	if !h.seen {
		h.displayed = evt.Health
		h.seen = true
	}
}

func (h *HealthView) OnDeath(evt messages.DeathEvent) {
	h.mu.Lock()
	h.dead, h.killer = true, evt.KillerID
	h.mu.Unlock()
}

func (h *HealthView) OnSpawn() {
	h.mu.Lock()
	h.dead, h.killer = false, 0
	h.mu.Unlock()
}

// Update moves the displayed value toward the target by dt seconds.
func (h *HealthView) Update(dt float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.displayed += (h.target - h.displayed) * gamemath.ResponseFactor(h.lag, dt)
	if math.Abs(h.target-h.displayed) < 0.01 {
		h.displayed = h.target
	}
}

func (h *HealthView) Health() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.target
}

func (h *HealthView) Displayed() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.displayed
}

// Fraction is the displayed health over max, for a slider.
func (h *HealthView) Fraction() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.max <= 0 {
		return 0
	}
	return math.Max(0, math.Min(h.displayed/h.max, 1))
}

// Dead reports whether the local player died and has not spawned since, and
// who killed it.
func (h *HealthView) Dead() (bool, esync.NetworkId) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dead, h.killer
}

// Presentation routes a client's pending events into its views.
type Presentation struct {
	Weapon *WeaponView
	Health *HealthView
}

// Pump drains every pending event from c. It returns the spawn replies so the
// caller can place its camera.
func (p *Presentation) Pump(c *Client) []messages.SpawnComplete {
	// Grants first so shot and reload events find the local weapon.
	for _, evt := range c.DrainSwitchEvents() {
		p.Weapon.OnWeaponSwitched(evt)
	}
	for _, evt := range c.DrainShotEvents() {
		p.Weapon.OnShotFired(evt)
	}
	for _, evt := range c.DrainEmptyClickEvents() {
		p.Weapon.OnEmptyClick(evt)
	}
	for _, evt := range c.DrainReloadEvents() {
		p.Weapon.OnReloadStarted(evt)
	}
	for _, evt := range c.DrainHealthEvents() {
		p.Health.OnHealthChanged(evt)
	}
	for _, evt := range c.DrainDeathEvents() {
		p.Health.OnDeath(evt)
	}
	spawns := c.DrainSpawnEvents()
	if len(spawns) > 0 {
		p.Health.OnSpawn()
	}
	return spawns
}
