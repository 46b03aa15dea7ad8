package core

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/character"
	"github.com/automoto/frontline-mp/shared/leveldata"
	"github.com/automoto/frontline-mp/shared/weapons"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type mockPeer struct {
	mock.Mock
	id string
}

func newMockPeer(id string) *mockPeer {
	p := &mockPeer{id: id}
	p.On("SendMessage", mock.Anything).Return(nil)
	return p
}

func (m *mockPeer) Id() string { return m.id }

func (m *mockPeer) SendMessage(msg any) error {
	return m.Called(msg).Error(0)
}

// sent returns every message the peer received, in order.
func (m *mockPeer) sent() []any {
	var out []any
	for _, c := range m.Calls {
		if c.Method == "SendMessage" {
			out = append(out, c.Arguments.Get(0))
		}
	}
	return out
}

// sentOf returns the received messages of type T, in order.
func sentOf[T any](m *mockPeer) []T {
	var out []T
	for _, msg := range m.sent() {
		if v, ok := msg.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration // Added after every read
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeWorld answers every raycast with hit, or a miss at full range.
type fakeWorld struct {
	mu    sync.Mutex
	hit   *arena.RayHit
	calls int
}

func (w *fakeWorld) Raycast(origin, dir mgl64.Vec3, maxDist float64, _ esync.NetworkId) arena.RayHit {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.hit != nil {
		return *w.hit
	}
	return arena.RayHit{Point: origin.Add(dir.Mul(maxDist)), Distance: maxDist}
}

func testMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := newMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return m
}

func testCatalog(t *testing.T) *weapons.Catalog {
	t.Helper()
	c, err := weapons.NewCatalog(
		weapons.Definition{
			ID:           "rifle",
			Damage:       25,
			MaxRange:     100,
			FireRateRPM:  600,
			MagazineSize: 30,
			ReloadTime:   2 * time.Second,
		},
		weapons.Definition{
			ID:           "pistol",
			Damage:       40,
			MaxRange:     50,
			FireRateRPM:  300,
			MagazineSize: 12,
			ReloadTime:   time.Second,
		},
	)
	require.NoError(t, err)
	return c
}

type combatEnv struct {
	clock   *fakeClock
	world   *fakeWorld
	peers   *PeerSet
	players *Registry
	health  *HealthAuthority
	weapons *WeaponAuthority
}

func newCombatEnv(t *testing.T, opts ...WeaponOption) *combatEnv {
	t.Helper()
	log := zerolog.Nop()
	metrics := testMetrics(t)

	e := &combatEnv{
		clock:   newFakeClock(),
		world:   &fakeWorld{},
		peers:   NewPeerSet(log),
		players: NewRegistry(),
	}
	e.health = NewHealthAuthority(true, e.players, e.peers, metrics, log)
	opts = append([]WeaponOption{
		WithClock(e.clock),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithSwitchCooldown(500 * time.Millisecond),
	}, opts...)
	e.weapons = NewWeaponAuthority(testCatalog(t), e.players, e.health, e.world, e.peers, metrics, log, opts...)
	return e
}

// addPlayer registers a spawned player with a connected peer.
func (e *combatEnv) addPlayer(id esync.NetworkId) (*Player, *mockPeer) {
	peer := newMockPeer(fmt.Sprintf("peer-%d", id))
	e.peers.Add(peer)

	p := newPlayer(id, peer.id, "", character.NewMotor(nil, character.DefaultMovementConfig()), 100)
	p.spawned = true
	e.players.Add(p)
	return p, peer
}

// armed adds a player holding weaponID with a reset peer history.
func (e *combatEnv) armed(t *testing.T, id esync.NetworkId, weaponID string) (*Player, *mockPeer) {
	t.Helper()
	p, peer := e.addPlayer(id)
	require.NoError(t, e.weapons.Grant(p, weaponID))
	return p, peer
}

func testLevel() *leveldata.LevelData {
	return &leveldata.LevelData{
		Name:  "yard",
		Width: 40,
		Depth: 40,
		Solids: []leveldata.Solid{
			{MinX: 0, MinZ: 0, MaxX: 40, MaxZ: 40, Bottom: -1, Top: 0},
			{MinX: 30, MinZ: 0, MaxX: 31, MaxZ: 40, Bottom: 0, Top: 5},
		},
		SpawnPoints: []leveldata.SpawnPoint{
			{Position: mgl64.Vec3{10, 0, 10}, Index: 0},
		},
	}
}

var (
	forward = mgl64.Vec3{0, 0, 1}
	eye     = mgl64.Vec3{0, 2, 0}
)
