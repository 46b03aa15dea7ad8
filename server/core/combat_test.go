package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/automoto/frontline-mp/shared/weapons"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFireEmptiesMagazineThenClicks(t *testing.T) {
	e := newCombatEnv(t)
	p, peer := e.armed(t, 1, "rifle")
	_, other := e.addPlayer(2)

	for i := 0; i < 30; i++ {
		out := e.weapons.RequestFire(p, eye, forward)
		require.True(t, out.Accepted, "shot %d: %s", i+1, out.Reason)
		e.clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 0, p.Snapshot(e.clock.Now()).Weapon.CurrentAmmo)

	out := e.weapons.RequestFire(p, eye, forward)
	assert.False(t, out.Accepted)
	assert.True(t, out.Empty)
	assert.Equal(t, ReasonEmpty, out.Reason)
	assert.Equal(t, 0, p.Snapshot(e.clock.Now()).Weapon.CurrentAmmo)

	click := messages.EmptyClickEvent{ShooterID: 1, WeaponID: "rifle"}
	assert.Equal(t, []messages.EmptyClickEvent{click}, sentOf[messages.EmptyClickEvent](peer))
	assert.Equal(t, []messages.EmptyClickEvent{click}, sentOf[messages.EmptyClickEvent](other))
	assert.Len(t, sentOf[messages.ShotFiredEvent](other), 30)
}

func TestEmptyClickConsumesFireInterval(t *testing.T) {
	e := newCombatEnv(t)
	p, _ := e.armed(t, 1, "pistol")
	p.weapon.ammo = 0

	assert.True(t, e.weapons.RequestFire(p, eye, forward).Empty)

	e.clock.Advance(100 * time.Millisecond)
	out := e.weapons.RequestFire(p, eye, forward)
	assert.Equal(t, ReasonFireRate, out.Reason)
}

func TestFireRateBoundaryIsInclusive(t *testing.T) {
	e := newCombatEnv(t)
	p, _ := e.armed(t, 1, "rifle")

	require.True(t, e.weapons.RequestFire(p, eye, forward).Accepted)

	e.clock.Advance(99 * time.Millisecond)
	out := e.weapons.RequestFire(p, eye, forward)
	assert.False(t, out.Accepted)
	assert.Equal(t, ReasonFireRate, out.Reason)
	assert.Equal(t, 29, p.Snapshot(e.clock.Now()).Weapon.CurrentAmmo, "rejection consumes nothing")

	e.clock.Advance(time.Millisecond)
	assert.True(t, e.weapons.RequestFire(p, eye, forward).Accepted)
}

func TestFireRejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(e *combatEnv, p *Player)
		dir    mgl64.Vec3
		reason string
	}{
		{
			name:   "zero aim",
			dir:    mgl64.Vec3{},
			reason: ReasonInvalidAim,
		},
		{
			name:   "no weapon",
			setup:  func(_ *combatEnv, p *Player) { p.weapon = WeaponState{} },
			dir:    forward,
			reason: ReasonNoWeapon,
		},
		{
			name:   "not spawned",
			setup:  func(_ *combatEnv, p *Player) { p.spawned = false },
			dir:    forward,
			reason: ReasonNotAlive,
		},
		{
			name: "dead",
			setup: func(e *combatEnv, p *Player) {
				_, _ = e.health.ApplyDamage(DamageEvent{VictimID: p.ID, Amount: 100})
			},
			dir:    forward,
			reason: ReasonNotAlive,
		},
		{
			name: "reloading",
			setup: func(e *combatEnv, p *Player) {
				p.weapon.ammo = 10
				e.weapons.RequestReload(p)
			},
			dir:    forward,
			reason: ReasonReloading,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newCombatEnv(t)
			p, _ := e.armed(t, 1, "rifle")
			if tt.setup != nil {
				tt.setup(e, p)
			}
			before := p.weapon.ammo

			out := e.weapons.RequestFire(p, eye, tt.dir)
			assert.False(t, out.Accepted)
			assert.False(t, out.Empty)
			assert.Equal(t, tt.reason, out.Reason)
			assert.Equal(t, before, p.weapon.ammo)
			assert.Zero(t, e.world.calls)
		})
	}
}

func TestFireHitDamagesVictim(t *testing.T) {
	e := newCombatEnv(t)
	shooter, shooterPeer := e.armed(t, 1, "rifle")
	victim, victimPeer := e.addPlayer(2)
	e.world.hit = &arena.RayHit{
		Hit:      true,
		Point:    mgl64.Vec3{0, 1.5, 10},
		Normal:   mgl64.Vec3{0, 0, -1},
		Distance: 10,
		Entity:   victim.ID,
	}

	out := e.weapons.RequestFire(shooter, eye, forward)
	require.True(t, out.Accepted)
	assert.True(t, out.Damage.Applied)
	assert.Equal(t, 75.0, victim.Snapshot(e.clock.Now()).Health.Health)

	want := messages.ShotFiredEvent{
		ShooterID: shooter.ID,
		WeaponID:  "rifle",
		Result: messages.ShotResult{
			Hit:         true,
			Origin:      eye,
			HitPoint:    mgl64.Vec3{0, 1.5, 10},
			HitNormal:   mgl64.Vec3{0, 0, -1},
			HitEntityID: victim.ID,
		},
	}
	assert.Equal(t, []messages.ShotFiredEvent{want}, sentOf[messages.ShotFiredEvent](shooterPeer))
	assert.Equal(t, []messages.ShotFiredEvent{want}, sentOf[messages.ShotFiredEvent](victimPeer))
	assert.Equal(t, []messages.HealthChangedEvent{{Health: 75, MaxHealth: 100}}, sentOf[messages.HealthChangedEvent](victimPeer))
	assert.Empty(t, sentOf[messages.HealthChangedEvent](shooterPeer))
}

func TestFireMissReportsRayEnd(t *testing.T) {
	e := newCombatEnv(t)
	p, _ := e.armed(t, 1, "rifle")

	out := e.weapons.RequestFire(p, eye, forward)
	require.True(t, out.Accepted)
	assert.False(t, out.Result.Hit)
	assert.Equal(t, eye, out.Result.Origin)
	assert.InDelta(t, 100, out.Result.HitPoint.Z(), 1e-9)
	assert.Zero(t, out.Result.HitEntityID)
}

func TestFireReplacesImplausibleOrigin(t *testing.T) {
	e := newCombatEnv(t)
	p, _ := e.armed(t, 1, "rifle")

	out := e.weapons.RequestFire(p, mgl64.Vec3{50, 2, 50}, forward)
	require.True(t, out.Accepted)
	assert.Equal(t, eye, out.Result.Origin)
}

func TestConcurrentFireNeverOverdraws(t *testing.T) {
	e := newCombatEnv(t)
	e.clock.step = time.Second
	p, _ := e.armed(t, 1, "rifle")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e.weapons.RequestFire(p, eye, forward).Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, accepted)
	assert.Equal(t, 0, p.Snapshot(e.clock.Now()).Weapon.CurrentAmmo)
}

func TestReloadLocksForReloadTime(t *testing.T) {
	e := newCombatEnv(t)
	p, peer := e.armed(t, 1, "rifle")

	for i := 0; i < 5; i++ {
		require.True(t, e.weapons.RequestFire(p, eye, forward).Accepted)
		e.clock.Advance(100 * time.Millisecond)
	}
	require.Equal(t, 25, p.Snapshot(e.clock.Now()).Weapon.CurrentAmmo)

	start := e.clock.Now()
	out := e.weapons.RequestReload(p)
	require.True(t, out.Accepted)
	assert.Equal(t, start.Add(2*time.Second), out.Until)

	snap := p.Snapshot(start)
	assert.Equal(t, 30, snap.Weapon.CurrentAmmo)
	assert.True(t, snap.Weapon.Reloading)
	assert.Equal(t, []messages.ReloadStartedEvent{{PlayerID: 1, WeaponID: "rifle", MagazineSize: 30}},
		sentOf[messages.ReloadStartedEvent](peer))

	e.clock.Advance(2*time.Second - time.Millisecond)
	assert.Equal(t, ReasonReloading, e.weapons.RequestFire(p, eye, forward).Reason)
	assert.Equal(t, ReasonReloading, e.weapons.RequestReload(p).Reason)

	e.clock.Advance(time.Millisecond)
	assert.True(t, e.weapons.RequestFire(p, eye, forward).Accepted)
	assert.False(t, p.Snapshot(e.clock.Now()).Weapon.Reloading)
}

func TestReloadRejections(t *testing.T) {
	e := newCombatEnv(t)
	p, peer := e.armed(t, 1, "rifle")

	assert.Equal(t, ReasonMagazineFull, e.weapons.RequestReload(p).Reason)

	unarmed, _ := e.addPlayer(2)
	assert.Equal(t, ReasonNoWeapon, e.weapons.RequestReload(unarmed).Reason)

	assert.Empty(t, sentOf[messages.ReloadStartedEvent](peer))
}

func TestSwitchWeapon(t *testing.T) {
	e := newCombatEnv(t)
	p, peer := e.armed(t, 1, "rifle")
	_, other := e.addPlayer(2)

	p.weapon.ammo = 3
	e.weapons.RequestReload(p)

	require.NoError(t, e.weapons.RequestSwitch(p, "pistol"))
	snap := p.Snapshot(e.clock.Now())
	assert.Equal(t, "pistol", snap.Weapon.WeaponID)
	assert.Equal(t, 12, snap.Weapon.CurrentAmmo)
	assert.False(t, snap.Weapon.Reloading, "switching cancels a reload")

	want := messages.WeaponSwitchedEvent{PlayerID: 1, WeaponID: "pistol", MagazineSize: 12, CurrentAmmo: 12}
	assert.Contains(t, sentOf[messages.WeaponSwitchedEvent](peer), want)
	assert.Equal(t, []messages.WeaponSwitchedEvent{want}, sentOf[messages.WeaponSwitchedEvent](other))

	assert.ErrorIs(t, e.weapons.RequestSwitch(p, "rifle"), ErrSwitchCooldown)
	e.clock.Advance(500 * time.Millisecond)
	assert.ErrorIs(t, e.weapons.RequestSwitch(p, "pistol"), ErrAlreadyEquipped)
	require.NoError(t, e.weapons.RequestSwitch(p, "rifle"))
}

func TestSwitchRejectsUnknownWeapon(t *testing.T) {
	e := newCombatEnv(t)
	p, peer := e.armed(t, 1, "rifle")

	for _, id := range []string{"", "railgun"} {
		err := e.weapons.RequestSwitch(p, id)
		assert.True(t, errors.Is(err, weapons.ErrUnknownWeapon), "id %q", id)
	}
	assert.Equal(t, "rifle", p.Snapshot(e.clock.Now()).Weapon.WeaponID)
	assert.Len(t, sentOf[messages.WeaponSwitchedEvent](peer), 1, "only the initial grant")
}

func TestCatchUpTargetsOnlyTheJoiner(t *testing.T) {
	e := newCombatEnv(t)
	veteran, veteranPeer := e.armed(t, 1, "pistol")
	_, _ = e.addPlayer(2) // unarmed, nothing to catch up on
	veteran.weapon.ammo = 5

	joiner, joinerPeer := e.addPlayer(3)
	veteranPeer.Calls = nil

	e.weapons.CatchUp(joiner)

	assert.Equal(t,
		[]messages.WeaponSwitchedEvent{{PlayerID: 1, WeaponID: "pistol", MagazineSize: 12, CurrentAmmo: 5}},
		sentOf[messages.WeaponSwitchedEvent](joinerPeer))
	veteranPeer.AssertNotCalled(t, "SendMessage", mock.Anything)
}

func TestRefillClearsReload(t *testing.T) {
	e := newCombatEnv(t)
	p, _ := e.armed(t, 1, "rifle")
	p.weapon.ammo = 1
	e.weapons.RequestReload(p)
	p.weapon.ammo = 0

	e.weapons.refill(p)
	snap := p.Snapshot(e.clock.Now())
	assert.Equal(t, 30, snap.Weapon.CurrentAmmo)
	assert.False(t, snap.Weapon.Reloading)
}
