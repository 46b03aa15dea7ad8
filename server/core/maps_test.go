package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/leveldata"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaps(opts MapOptions) (*MapManager, *mockPeer) {
	peers := NewPeerSet(zerolog.Nop())
	peer := newMockPeer("peer-1")
	peers.Add(peer)

	second := testLevel()
	second.Name = "annex"
	levels := map[string]*leveldata.LevelData{"yard": testLevel(), "annex": second}
	return NewMapManager(levels, arena.DefaultConfig(), opts, peers, zerolog.Nop()), peer
}

func TestMapLoadNotifiesSubscribersThenClients(t *testing.T) {
	m, peer := newTestMaps(MapOptions{})
	assert.Equal(t, []string{"annex", "yard"}, m.Names())
	assert.Nil(t, m.Active())

	var got []string
	m.Subscribe(func(a *arena.Arena) {
		got = append(got, a.Name())
		assert.Empty(t, peer.sent(), "subscribers run before the broadcast")
	})

	require.NoError(t, m.Load(context.Background(), "yard"))
	assert.Equal(t, []string{"yard"}, got)
	assert.Equal(t, "yard", m.ActiveName())
	assert.Equal(t, []any{messages.MapLoadedEvent{Name: "yard"}}, peer.sent())

	a, err := m.WaitReady(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Same(t, m.Active(), a)
}

func TestMapLoadUnknown(t *testing.T) {
	m, _ := newTestMaps(MapOptions{})
	assert.ErrorIs(t, m.Load(context.Background(), "nowhere"), ErrUnknownMap)
}

func TestWaitReadyTimesOut(t *testing.T) {
	m, _ := newTestMaps(MapOptions{})

	_, err := m.WaitReady(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrMapNotReady)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitReadyUnblocksOnLoad(t *testing.T) {
	m, _ := newTestMaps(MapOptions{})

	done := make(chan error, 1)
	go func() {
		_, err := m.WaitReady(context.Background(), 5*time.Second)
		done <- err
	}()

	require.NoError(t, m.Load(context.Background(), "annex"))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitReady did not return after load")
	}
}

func TestConcurrentLoadRetriesThenGivesUp(t *testing.T) {
	m, _ := newTestMaps(MapOptions{RetryDelay: time.Millisecond, Retries: 3})

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	m.Subscribe(func(*arena.Arena) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})

	first := make(chan error, 1)
	go func() { first <- m.Load(context.Background(), "yard") }()
	<-entered

	assert.ErrorIs(t, m.Load(context.Background(), "annex"), ErrMapBusy)

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, m.Load(context.Background(), "annex"))
	assert.Equal(t, "annex", m.ActiveName())
}

func TestConcurrentLoadWaitsForInFlight(t *testing.T) {
	m, _ := newTestMaps(MapOptions{RetryDelay: 5 * time.Millisecond, Retries: 100})

	entered := make(chan struct{})
	var once sync.Once
	m.Subscribe(func(*arena.Arena) {
		once.Do(func() {
			close(entered)
			time.Sleep(20 * time.Millisecond)
		})
	})

	first := make(chan error, 1)
	go func() { first <- m.Load(context.Background(), "yard") }()
	<-entered

	require.NoError(t, m.Load(context.Background(), "annex"))
	require.NoError(t, <-first)
	assert.Equal(t, "annex", m.ActiveName())
}

func TestRaycastWithoutMapMisses(t *testing.T) {
	m, _ := newTestMaps(MapOptions{})

	hit := m.Raycast(eye, forward, 50, 0)
	assert.False(t, hit.Hit)

	require.NoError(t, m.Load(context.Background(), "yard"))
	hit = m.Raycast(mgl64.Vec3{10, 1, 10}, mgl64.Vec3{1, 0, 0}, 50, 0)
	assert.True(t, hit.Hit)
	assert.InDelta(t, 30, hit.Point.X(), 1e-9)
}
