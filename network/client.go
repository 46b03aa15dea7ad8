package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/coder/websocket"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
)

var ErrNotConnected = errors.New("not connected")

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

const eventBuffer = 32

// Client manages a WebSocket connection to the game server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu  sync.RWMutex
	log zerolog.Logger

	state          ClientState
	lastError      error
	networkID      esync.NetworkId
	reconnectToken string
	serverName     string
	tickRate       int
	mapName        string
	conn           *websocket.Conn

	snapshotCh chan esync.WorldSnapshot // size-1 buffered; latest wins

	shotCh   chan messages.ShotFiredEvent
	emptyCh  chan messages.EmptyClickEvent
	reloadCh chan messages.ReloadStartedEvent
	switchCh chan messages.WeaponSwitchedEvent
	healthCh chan messages.HealthChangedEvent
	deathCh  chan messages.DeathEvent
	spawnCh  chan messages.SpawnComplete
	mapCh    chan messages.MapLoadedEvent
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		log:        log.With().Str("component", "client").Logger(),
		state:      StateDisconnected,
		snapshotCh: make(chan esync.WorldSnapshot, 1),
		shotCh:     make(chan messages.ShotFiredEvent, eventBuffer),
		emptyCh:    make(chan messages.EmptyClickEvent, eventBuffer),
		reloadCh:   make(chan messages.ReloadStartedEvent, eventBuffer),
		switchCh:   make(chan messages.WeaponSwitchedEvent, eventBuffer),
		healthCh:   make(chan messages.HealthChangedEvent, eventBuffer),
		deathCh:    make(chan messages.DeathEvent, 4),
		spawnCh:    make(chan messages.SpawnComplete, 4),
		mapCh:      make(chan messages.MapLoadedEvent, 4),
	}
}

// Connect dials the server in a background goroutine and initiates the join handshake.
func (c *Client) Connect(address, version, playerName string) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		c.log.Info().Str("address", address).Msg("connected to server")
		c.mu.Lock()
		c.state = StateConnected
		token := c.reconnectToken
		c.mu.Unlock()

		err := c.SendMessage(messages.JoinRequest{
			Version:        version,
			PlayerName:     playerName,
			ReconnectToken: token,
		})
		if err != nil {
			c.setError(fmt.Errorf("failed to send join request: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		c.log.Info().
			Uint("networkID", uint(msg.NetworkID)).
			Str("server", msg.ServerName).
			Int("tickRate", msg.TickRate).
			Str("map", msg.Map).
			Msg("join accepted")
		c.mu.Lock()
		c.networkID = msg.NetworkID
		c.reconnectToken = msg.ReconnectToken
		c.serverName = msg.ServerName
		c.tickRate = msg.TickRate
		c.mapName = msg.Map
		c.state = StateJoinedGame
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		c.log.Warn().Int("code", int(msg.Code)).Str("reason", msg.Reason).Msg("join rejected")
		c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
	})

	router.On(func(_ *router.NetworkClient, snapshot esync.WorldSnapshot) {
		select { // drain stale, push latest
		case <-c.snapshotCh:
		default:
		}
		c.snapshotCh <- snapshot
	})

	router.On(func(_ *router.NetworkClient, evt messages.ShotFiredEvent) { push(c.shotCh, evt) })
	router.On(func(_ *router.NetworkClient, evt messages.EmptyClickEvent) { push(c.emptyCh, evt) })
	router.On(func(_ *router.NetworkClient, evt messages.ReloadStartedEvent) { push(c.reloadCh, evt) })
	router.On(func(_ *router.NetworkClient, evt messages.WeaponSwitchedEvent) { push(c.switchCh, evt) })
	router.On(func(_ *router.NetworkClient, evt messages.HealthChangedEvent) { push(c.healthCh, evt) })
	router.On(func(_ *router.NetworkClient, evt messages.DeathEvent) { push(c.deathCh, evt) })
	router.On(func(_ *router.NetworkClient, evt messages.SpawnComplete) { push(c.spawnCh, evt) })

	router.On(func(_ *router.NetworkClient, evt messages.MapLoadedEvent) {
		c.mu.Lock()
		c.mapName = evt.Name
		c.mu.Unlock()
		push(c.mapCh, evt)
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		c.log.Info().Err(err).Msg("disconnected")
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		c.log.Error().Err(err).Msg("client error")
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Client) NetworkID() esync.NetworkId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.networkID
}

func (c *Client) Map() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapName
}

func (c *Client) TickRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickRate
}

// LatestSnapshot returns the most recent WorldSnapshot, or nil. Non-blocking.
func (c *Client) LatestSnapshot() *esync.WorldSnapshot {
	select {
	case snap := <-c.snapshotCh:
		return &snap
	default:
		return nil
	}
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

// Fire asks the server to fire the equipped weapon.
func (c *Client) Fire(origin, dir mgl64.Vec3) error {
	return c.SendMessage(messages.FireRequest{Origin: origin, Direction: dir})
}

func (c *Client) Reload() error {
	return c.SendMessage(messages.ReloadRequest{})
}

func (c *Client) SwitchWeapon(id string) error {
	return c.SendMessage(messages.SwitchWeaponRequest{WeaponID: id})
}

func (c *Client) RequestSpawn() error {
	return c.SendMessage(messages.SpawnRequest{})
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}

// DrainShotEvents returns all pending shot events, non-blocking.
func (c *Client) DrainShotEvents() []messages.ShotFiredEvent {
	return drainChan(c.shotCh)
}

// DrainEmptyClickEvents returns all pending empty-click events, non-blocking.
func (c *Client) DrainEmptyClickEvents() []messages.EmptyClickEvent {
	return drainChan(c.emptyCh)
}

// DrainReloadEvents returns all pending reload events, non-blocking.
func (c *Client) DrainReloadEvents() []messages.ReloadStartedEvent {
	return drainChan(c.reloadCh)
}

// DrainSwitchEvents returns all pending weapon grants, non-blocking.
func (c *Client) DrainSwitchEvents() []messages.WeaponSwitchedEvent {
	return drainChan(c.switchCh)
}

// DrainHealthEvents returns all pending health updates, non-blocking.
func (c *Client) DrainHealthEvents() []messages.HealthChangedEvent {
	return drainChan(c.healthCh)
}

// DrainDeathEvents returns all pending death notices, non-blocking.
func (c *Client) DrainDeathEvents() []messages.DeathEvent {
	return drainChan(c.deathCh)
}

// DrainSpawnEvents returns all pending spawn replies, non-blocking.
func (c *Client) DrainSpawnEvents() []messages.SpawnComplete {
	return drainChan(c.spawnCh)
}

// DrainMapEvents returns all pending map changes, non-blocking.
func (c *Client) DrainMapEvents() []messages.MapLoadedEvent {
	return drainChan(c.mapCh)
}

// push queues v, evicting the oldest queued event when the consumer has
// fallen behind so the latest state always arrives.
func push[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
