package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/leveldata"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
)

var (
	ErrMapNotReady = errors.New("map not ready")
	ErrMapBusy     = errors.New("map load already in progress")
	ErrUnknownMap  = errors.New("unknown map")
)

// MapOptions tunes how a load waits for one already in flight.
type MapOptions struct {
	RetryDelay time.Duration
	Retries    int
}

// MapManager owns the active arena. Loads are serialized: a load arriving
// while another is in flight retries with a fixed delay and gives up with
// ErrMapBusy.
type MapManager struct {
	mu      sync.Mutex
	levels  map[string]*leveldata.LevelData
	names   []string
	cfg     arena.Config
	opts    MapOptions
	active  *arena.Arena
	loading bool
	subs    []func(*arena.Arena)

	ready     chan struct{}
	readyOnce sync.Once

	peers *PeerSet
	log   zerolog.Logger
}

func NewMapManager(levels map[string]*leveldata.LevelData, cfg arena.Config, opts MapOptions, peers *PeerSet, log zerolog.Logger) *MapManager {
	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, name)
	}
	slices.Sort(names)

	return &MapManager{
		levels: levels,
		names:  names,
		cfg:    cfg,
		opts:   opts,
		ready:  make(chan struct{}),
		peers:  peers,
		log:    log.With().Str("component", "maps").Logger(),
	}
}

// LoadLevels parses every .tmx under dir in fsys.
func LoadLevels(fsys fs.FS, dir string) (map[string]*leveldata.LevelData, error) {
	levels, _, err := leveldata.LoadAllLevels(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("load all levels: %w", err)
	}
	return levels, nil
}

// Names lists the loadable maps in order.
func (m *MapManager) Names() []string {
	return slices.Clone(m.names)
}

// Subscribe registers fn to run after every successful load, before the
// load is announced to clients.
func (m *MapManager) Subscribe(fn func(*arena.Arena)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// Load builds the arena for name and makes it active.
func (m *MapManager) Load(ctx context.Context, name string) error {
	data, ok := m.levels[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMap, name)
	}

	for attempt := 0; !m.begin(); attempt++ {
		if attempt >= m.opts.Retries {
			return ErrMapBusy
		}
		m.log.Debug().Str("map", name).Int("attempt", attempt+1).Msg("map load busy, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.opts.RetryDelay):
		}
	}
	defer m.end()

	a := arena.New(data, m.cfg)

	m.mu.Lock()
	m.active = a
	subs := slices.Clone(m.subs)
	m.mu.Unlock()

	m.readyOnce.Do(func() { close(m.ready) })
	for _, fn := range subs {
		fn(a)
	}

	m.log.Info().Str("map", name).Int("spawns", len(data.SpawnPoints)).Int("solids", len(data.Solids)).Msg("map loaded")
	m.peers.Broadcast(messages.MapLoadedEvent{Name: name})
	return nil
}

func (m *MapManager) begin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading {
		return false
	}
	m.loading = true
	return true
}

func (m *MapManager) end() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}

// Active returns the current arena or nil before the first load.
func (m *MapManager) Active() *arena.Arena {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ActiveName returns the current map name or "".
func (m *MapManager) ActiveName() string {
	if a := m.Active(); a != nil {
		return a.Name()
	}
	return ""
}

// WaitReady blocks until a map has been loaded, ctx is done or timeout
// passes.
func (m *MapManager) WaitReady(ctx context.Context, timeout time.Duration) (*arena.Arena, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-m.ready:
		return m.Active(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrMapNotReady, ctx.Err())
	}
}

// Raycast casts against the active arena. With no map loaded every ray
// misses.
func (m *MapManager) Raycast(origin, dir mgl64.Vec3, maxDist float64, ignore esync.NetworkId) arena.RayHit {
	a := m.Active()
	if a == nil {
		return arena.RayHit{Point: origin, Distance: 0}
	}
	return a.Raycast(origin, dir, maxDist, ignore)
}
