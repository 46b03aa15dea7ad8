package core

import (
	"errors"
	"fmt"

	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
)

var (
	// ErrNotAuthoritative is returned by mutations attempted outside the server.
	ErrNotAuthoritative = errors.New("not authoritative")
	ErrUnknownPlayer    = errors.New("unknown player")
)

// DamageEvent asks the health authority to hurt VictimID. SourceID is zero for
// environmental damage.
type DamageEvent struct {
	SourceID esync.NetworkId
	VictimID esync.NetworkId
	Amount   float64
}

// DamageResult reports what a damage event did.
type DamageResult struct {
	Applied bool
	Health  float64
	Killed  bool
}

// HealthAuthority owns every player's health. Each change is sent to the
// owning peer only; other peers never see health values. Death is edge
// triggered and fires once until the player is healed or respawned.
type HealthAuthority struct {
	authoritative bool
	players       *Registry
	peers         *PeerSet
	metrics       *Metrics
	log           zerolog.Logger
}

// NewHealthAuthority creates the authority. A non-authoritative instance
// rejects every mutation with ErrNotAuthoritative.
func NewHealthAuthority(authoritative bool, players *Registry, peers *PeerSet, metrics *Metrics, log zerolog.Logger) *HealthAuthority {
	return &HealthAuthority{
		authoritative: authoritative,
		players:       players,
		peers:         peers,
		metrics:       metrics,
		log:           log.With().Str("component", "health").Logger(),
	}
}

// SetMaxHealth changes the bound and clamps current health into it.
func (h *HealthAuthority) SetMaxHealth(p *Player, value float64) error {
	if !h.authoritative {
		return ErrNotAuthoritative
	}
	if value <= 0 {
		return fmt.Errorf("max health must be positive, got %v", value)
	}

	p.mu.Lock()
	p.health.MaxHealth = value
	p.health.Health = min(p.health.Health, value)
	state := p.health
	p.mu.Unlock()

	h.notify(p, state)
	return nil
}

// ApplyDamage subtracts ev.Amount from the victim's health, flooring at zero.
// The victim's peer gets the new value and, when this hit killed it, a death
// notice after it. Damage to a dead player changes nothing.
func (h *HealthAuthority) ApplyDamage(ev DamageEvent) (DamageResult, error) {
	if !h.authoritative {
		return DamageResult{}, ErrNotAuthoritative
	}
	victim, ok := h.players.Get(ev.VictimID)
	if !ok {
		return DamageResult{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, ev.VictimID)
	}
	if ev.Amount <= 0 {
		return DamageResult{}, nil
	}

	victim.mu.Lock()
	if victim.health.Dead {
		hp := victim.health.Health
		victim.mu.Unlock()
		return DamageResult{Health: hp}, nil
	}
	victim.health.Health = max(victim.health.Health-ev.Amount, 0)
	killed := victim.health.Health <= 0
	if killed {
		victim.health.Dead = true
	}
	state := victim.health
	victim.mu.Unlock()

	inc(h.metrics.damageApplied)
	h.log.Debug().
		Uint("victim", uint(ev.VictimID)).
		Uint("source", uint(ev.SourceID)).
		Float64("amount", ev.Amount).
		Float64("health", state.Health).
		Msg("damage applied")

	// Same goroutine, same peer: the death notice always follows the damage.
	h.notify(victim, state)
	if killed {
		inc(h.metrics.deaths)
		h.log.Info().Uint("victim", uint(ev.VictimID)).Uint("killer", uint(ev.SourceID)).Msg("player died")
		h.peers.sendTo(victim.PeerID, messages.DeathEvent{KillerID: ev.SourceID})
	}
	return DamageResult{Applied: true, Health: state.Health, Killed: killed}, nil
}

// Heal adds amount up to MaxHealth. Healing a dead player above zero clears
// its death flag.
func (h *HealthAuthority) Heal(p *Player, amount float64) error {
	if !h.authoritative {
		return ErrNotAuthoritative
	}
	if amount <= 0 {
		return nil
	}

	p.mu.Lock()
	p.health.Health = min(p.health.Health+amount, p.health.MaxHealth)
	if p.health.Health > 0 {
		p.health.Dead = false
	}
	state := p.health
	p.mu.Unlock()

	h.notify(p, state)
	return nil
}

// Respawn restores full health and clears the death flag.
func (h *HealthAuthority) Respawn(p *Player) error {
	if !h.authoritative {
		return ErrNotAuthoritative
	}

	p.mu.Lock()
	p.health.Health = p.health.MaxHealth
	p.health.Dead = false
	state := p.health
	p.mu.Unlock()

	h.notify(p, state)
	return nil
}

func (h *HealthAuthority) notify(p *Player, state HealthState) {
	h.peers.sendTo(p.PeerID, messages.HealthChangedEvent{
		Health:    state.Health,
		MaxHealth: state.MaxHealth,
	})
}
