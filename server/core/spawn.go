package core

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/character"
	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/leveldata"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/rs/zerolog"
)

var ErrNoSpawnPoints = errors.New("no spawn points")

// SpawnService places players at a random spawn point of the active map. It
// learns about maps only through OnMapLoaded.
type SpawnService struct {
	mu     sync.Mutex
	world  *arena.Arena
	spawns []leveldata.SpawnPoint

	movement character.MovementConfig
	health   *HealthAuthority
	weapons  *WeaponAuthority
	peers    *PeerSet
	metrics  *Metrics
	log      zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSpawnService(movement character.MovementConfig, health *HealthAuthority, weapons *WeaponAuthority,
	peers *PeerSet, metrics *Metrics, rng *rand.Rand, log zerolog.Logger) *SpawnService {
	return &SpawnService{
		movement: movement,
		health:   health,
		weapons:  weapons,
		peers:    peers,
		metrics:  metrics,
		rng:      rng,
		log:      log.With().Str("component", "spawn").Logger(),
	}
}

// OnMapLoaded replaces the spawn set with the new map's.
func (s *SpawnService) OnMapLoaded(a *arena.Arena) {
	s.mu.Lock()
	s.world = a
	s.spawns = a.SpawnPoints()
	s.mu.Unlock()
}

// Spawn resets p's health and magazine, puts a fresh character at a random
// spawn point and tells p's peer where it is.
func (s *SpawnService) Spawn(p *Player) (leveldata.SpawnPoint, error) {
	s.mu.Lock()
	world, spawns := s.world, s.spawns
	s.mu.Unlock()

	if world == nil {
		return leveldata.SpawnPoint{}, ErrMapNotReady
	}
	if len(spawns) == 0 {
		return leveldata.SpawnPoint{}, ErrNoSpawnPoints
	}

	s.rngMu.Lock()
	pt := spawns[s.rng.IntN(len(spawns))]
	s.rngMu.Unlock()

	if err := s.health.Respawn(p); err != nil {
		return leveldata.SpawnPoint{}, err
	}
	s.weapons.refill(p)

	motor := character.NewMotor(world, s.movement)
	motor.SetPosition(pt.Position, true)
	motor.SetRotation(gamemath.YawRotation(pt.Yaw))
	motor.Controller().UpdateInput(character.CharacterInput{Rotation: motor.Rotation})

	p.mu.Lock()
	p.motor = motor
	p.spawned = true
	p.hasInput = false
	p.mu.Unlock()

	inc(s.metrics.spawns)
	s.log.Info().Uint("player", uint(p.ID)).Int("spawn", pt.Index).Msg("player spawned")
	s.peers.sendTo(p.PeerID, messages.SpawnComplete{Position: pt.Position, Yaw: pt.Yaw})
	return pt, nil
}
