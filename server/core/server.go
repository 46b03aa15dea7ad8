package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/automoto/frontline-mp/archetypes"
	"github.com/automoto/frontline-mp/components"
	"github.com/automoto/frontline-mp/config"
	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/character"
	"github.com/automoto/frontline-mp/shared/leveldata"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/automoto/frontline-mp/shared/netcomponents"
	"github.com/automoto/frontline-mp/shared/weapons"
	"github.com/automoto/frontline-mp/tags"
	"github.com/google/uuid"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// maxPendingCommands bounds the requests queued between two ticks.
const maxPendingCommands = 1024

// Options are the server's dependencies.
type Options struct {
	Config  *config.Config
	Catalog *weapons.Catalog
	Levels  map[string]*leveldata.LevelData
	Logger  zerolog.Logger
	Clock   Clock      // Defaults to SystemClock
	Rand    *rand.Rand // Defaults to a time-seeded source
}

type command struct {
	peerID string
	run    func(*Player)
}

// Server manages the game state and client connections
type Server struct {
	cfg   *config.Config
	log   zerolog.Logger
	clock Clock

	world       donburi.World
	worldMu     sync.Mutex
	playerQuery *donburi.Query

	loop      *GameLoop
	transport *transports.WsServerTransport

	peers   *PeerSet
	players *Registry
	maps    *MapManager
	health  *HealthAuthority
	weapons *WeaponAuthority
	spawns  *SpawnService
	metrics *Metrics

	cmdMu   sync.Mutex
	pending []command

	// beforeIntegrate runs for each player between the registry snapshot and
	// taking the player's lock. Tests use it to interleave disconnects.
	beforeIntegrate func(*Player)
}

// NewServer creates a new game server
func NewServer(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("server config is nil")
	}
	if opts.Catalog == nil {
		return nil, errors.New("weapon catalog is nil")
	}
	if _, err := opts.Catalog.Lookup(cfg.Weapons.Default); err != nil {
		return nil, fmt.Errorf("default weapon: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	spawnRng := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))

	metrics, err := NewMetrics()
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	peers := NewPeerSet(log)
	players := NewRegistry()
	maps := NewMapManager(opts.Levels, cfg.Collision, MapOptions{
		RetryDelay: cfg.Server.MapRetryDelay,
		Retries:    cfg.Server.MapRetries,
	}, peers, log)
	health := NewHealthAuthority(true, players, peers, metrics, log)
	weaponAuth := NewWeaponAuthority(opts.Catalog, players, health, maps, peers, metrics, log,
		WithClock(clock),
		WithRand(rng),
		WithSwitchCooldown(cfg.Weapons.SwitchCooldown),
	)
	spawns := NewSpawnService(cfg.Movement, health, weaponAuth, peers, metrics, spawnRng, log)

	s := &Server{
		cfg:         cfg,
		log:         log,
		clock:       clock,
		world:       donburi.NewWorld(),
		playerQuery: donburi.NewQuery(filter.Contains(tags.Player)),
		peers:       peers,
		players:     players,
		maps:        maps,
		health:      health,
		weapons:     weaponAuth,
		spawns:      spawns,
		metrics:     metrics,
	}
	s.loop = NewGameLoop(s, cfg.Server.TickRate, log)

	maps.Subscribe(spawns.OnMapLoaded)
	maps.Subscribe(s.onMapLoaded)
	return s, nil
}

// Start loads the configured map, then runs the loop and listens on port.
// It returns when the transport stops.
func (s *Server) Start(ctx context.Context, port uint) error {
	if err := s.maps.Load(ctx, s.cfg.Server.Map); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	if _, err := s.maps.WaitReady(ctx, s.cfg.Server.MapReadyTimeout); err != nil {
		return err
	}

	// Set up the world for esync
	srvsync.UseEsync(s.world)
	s.setupRouterCallbacks()

	go s.loop.Run()

	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() {
	s.loop.Stop()
}

// Maps exposes the map manager, e.g. for map rotation.
func (s *Server) Maps() *MapManager { return s.maps }

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		s.onConnect(client)
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		s.onDisconnect(client, err)
	})

	router.On(func(client *router.NetworkClient, req messages.JoinRequest) {
		s.onJoin(client, req)
	})

	router.On(func(client *router.NetworkClient, input messages.PlayerInput) {
		s.onPlayerInput(client, input)
	})

	router.On(func(client *router.NetworkClient, req messages.FireRequest) {
		s.enqueue(client.Id(), func(p *Player) {
			s.weapons.RequestFire(p, req.Origin, req.Direction)
		})
	})

	router.On(func(client *router.NetworkClient, _ messages.ReloadRequest) {
		s.enqueue(client.Id(), func(p *Player) {
			s.weapons.RequestReload(p)
		})
	})

	router.On(func(client *router.NetworkClient, req messages.SwitchWeaponRequest) {
		s.enqueue(client.Id(), func(p *Player) {
			_ = s.weapons.RequestSwitch(p, req.WeaponID)
		})
	})

	router.On(func(client *router.NetworkClient, _ messages.SpawnRequest) {
		s.enqueue(client.Id(), s.spawn)
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		s.log.Error().Err(err).Str("peer", client.Id()).Msg("client error")
	})
}

func (s *Server) onConnect(peer Peer) {
	s.peers.Add(peer)
	s.log.Info().Str("peer", peer.Id()).Msg("client connected")
}

func (s *Server) onDisconnect(peer Peer, err error) {
	if err != nil {
		s.log.Info().Err(err).Str("peer", peer.Id()).Msg("client disconnected")
	} else {
		s.log.Info().Str("peer", peer.Id()).Msg("client disconnected")
	}
	s.peers.Remove(peer.Id())

	p, ok := s.players.RemovePeer(peer.Id())
	if !ok {
		return
	}
	// Under p.mu so a tick that already snapshotted p cannot place its
	// hitbox back after this removal.
	p.mu.Lock()
	p.removed = true
	if a := s.maps.Active(); a != nil {
		a.RemoveHitbox(p.ID)
	}
	p.mu.Unlock()

	s.worldMu.Lock()
	defer s.worldMu.Unlock()
	if s.world.Valid(p.Entity) {
		s.world.Remove(p.Entity)
	}
}

func (s *Server) onJoin(peer Peer, req messages.JoinRequest) {
	if want := s.cfg.Server.Version; want != "" && req.Version != want {
		s.log.Info().Str("peer", peer.Id()).Str("version", req.Version).Msg("join rejected: version mismatch")
		s.reply(peer, messages.JoinRejected{
			Code:   messages.RejectVersion,
			Reason: fmt.Sprintf("version mismatch: server requires %s, client has %s", want, req.Version),
		})
		return
	}
	if _, exists := s.players.ByPeer(peer.Id()); exists {
		s.log.Debug().Str("peer", peer.Id()).Msg("duplicate join ignored")
		return
	}

	p, err := s.createPlayer(peer.Id(), req.PlayerName)
	if err != nil {
		s.log.Error().Err(err).Str("peer", peer.Id()).Msg("create player")
		s.reply(peer, messages.JoinRejected{Code: messages.RejectServerError, Reason: "server error"})
		return
	}

	token := req.ReconnectToken
	if token == "" {
		token = uuid.NewString()
	}
	s.reply(peer, messages.JoinAccepted{
		NetworkID:      p.ID,
		ReconnectToken: token,
		ServerName:     s.cfg.Server.Name,
		TickRate:       s.cfg.Server.TickRate,
		Map:            s.maps.ActiveName(),
	})
	s.log.Info().Str("peer", peer.Id()).Str("name", p.Name).Uint("player", uint(p.ID)).Msg("player joined")

	s.weapons.CatchUp(p)
	if err := s.weapons.Grant(p, s.cfg.Weapons.Default); err != nil {
		s.log.Error().Err(err).Uint("player", uint(p.ID)).Msg("grant default weapon")
	}
	if err := s.health.Respawn(p); err != nil {
		s.log.Error().Err(err).Uint("player", uint(p.ID)).Msg("initial health")
	}
}

func (s *Server) reply(peer Peer, msg any) {
	if err := peer.SendMessage(msg); err != nil {
		s.log.Error().Err(err).Str("peer", peer.Id()).Msgf("send %T failed", msg)
	}
}

// createPlayer creates the player's synced entity and registers it. The
// character stays parked until the peer asks to spawn.
func (s *Server) createPlayer(peerID, name string) (*Player, error) {
	s.worldMu.Lock()
	defer s.worldMu.Unlock()

	entry := archetypes.Player.Spawn(s.world)
	components.Player.Set(entry, &components.PlayerData{PeerID: peerID, Name: name})
	entity := entry.Entity()

	// Mark entity for network sync with interpolation for movement
	err := srvsync.NetworkSync(s.world, &entity,
		srvsync.WithInterp(netcomponents.NetTransform, netcomponents.NetVelocity),
		netcomponents.NetCharacter,
		netcomponents.NetWeapon,
	)
	if err != nil {
		s.world.Remove(entity)
		return nil, fmt.Errorf("network sync: %w", err)
	}

	nid := esync.GetNetworkId(s.world.Entry(entity))
	if nid == nil {
		s.world.Remove(entity)
		return nil, errors.New("player entity has no network id")
	}

	if name == "" {
		name = fmt.Sprintf("player-%d", *nid)
	}
	p := newPlayer(*nid, peerID, name, character.NewMotor(nil, s.cfg.Movement), s.cfg.Player.MaxHealth)
	p.Entity = entity
	s.players.Add(p)
	return p, nil
}

func (s *Server) onPlayerInput(peer Peer, input messages.PlayerInput) {
	p, ok := s.players.ByPeer(peer.Id())
	if !ok {
		return
	}
	p.QueueInput(input)
}

func (s *Server) spawn(p *Player) {
	p.mu.Lock()
	alive := p.alive()
	p.mu.Unlock()
	if alive {
		s.log.Debug().Uint("player", uint(p.ID)).Msg("spawn request ignored, player already alive")
		return
	}
	if _, err := s.spawns.Spawn(p); err != nil {
		s.log.Warn().Err(err).Uint("player", uint(p.ID)).Msg("spawn failed")
	}
}

// onMapLoaded parks every character; they come back on their next spawn
// request.
func (s *Server) onMapLoaded(_ *arena.Arena) {
	for _, p := range s.players.All() {
		p.mu.Lock()
		p.spawned = false
		p.hasInput = false
		p.mu.Unlock()
	}
}

// enqueue defers a request from peerID to the next tick.
func (s *Server) enqueue(peerID string, run func(*Player)) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if len(s.pending) >= maxPendingCommands {
		s.log.Warn().Str("peer", peerID).Msg("command queue full, dropping request")
		return
	}
	s.pending = append(s.pending, command{peerID: peerID, run: run})
}

// ProcessCommands runs the queued requests in arrival order.
func (s *Server) ProcessCommands() {
	s.cmdMu.Lock()
	cmds := s.pending
	s.pending = nil
	s.cmdMu.Unlock()

	for _, c := range cmds {
		p, ok := s.players.ByPeer(c.peerID)
		if !ok {
			s.log.Debug().Str("peer", c.peerID).Msg("request from peer without a player")
			continue
		}
		c.run(p)
	}
}

// Step advances the simulation by dt seconds: pending inputs, character
// movement and hitboxes, then queued requests, then the replicated
// components.
func (s *Server) Step(dt float64) {
	s.integrate(dt)
	s.ProcessCommands()
	s.flush()
}

func (s *Server) integrate(dt float64) {
	a := s.maps.Active()
	for _, p := range s.players.All() {
		if s.beforeIntegrate != nil {
			s.beforeIntegrate(p)
		}
		s.integratePlayer(p, a, dt)
	}
}

// integratePlayer moves one player and syncs its hitbox. The hitbox is
// touched under p.mu so it is ordered with disconnect.
func (s *Server) integratePlayer(p *Player, a *arena.Arena, dt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed {
		return
	}
	p.applyInput()
	alive := p.alive()
	if alive {
		p.motor.Tick(dt)
	}
	if a == nil {
		return
	}
	if alive {
		a.PlaceHitbox(p.ID, p.motor.Position, p.motor.Capsule)
	} else {
		a.RemoveHitbox(p.ID)
	}
}

// flush copies each player's state into its replicated components.
func (s *Server) flush() {
	now := s.clock.Now()

	s.worldMu.Lock()
	defer s.worldMu.Unlock()

	s.playerQuery.Each(s.world, func(entry *donburi.Entry) {
		owner := components.Player.Get(entry)
		p, ok := s.players.ByPeer(owner.PeerID)
		if !ok {
			return
		}
		snap := p.Snapshot(now)

		tr := netcomponents.NetTransform.Get(entry)
		tr.Position = snap.Position
		tr.Yaw = snap.Yaw

		netcomponents.NetVelocity.Get(entry).Velocity = snap.Velocity

		ch := netcomponents.NetCharacter.Get(entry)
		ch.Stance = snap.Stance
		ch.Grounded = snap.Grounded
		ch.Alive = snap.Alive
		ch.LastSequence = snap.LastSequence

		*netcomponents.NetWeapon.Get(entry) = snap.Weapon
	})
}

// World returns the ECS world
func (s *Server) World() donburi.World {
	return s.world
}

// PlayerCount returns the number of joined players
func (s *Server) PlayerCount() int {
	return s.players.Len()
}
