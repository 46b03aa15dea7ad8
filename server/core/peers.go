package core

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrUnknownPeer is returned when a targeted message names a peer that is not
// connected.
var ErrUnknownPeer = errors.New("unknown peer")

// Peer is one connected client. *router.NetworkClient satisfies it.
type Peer interface {
	Id() string
	SendMessage(msg any) error
}

// PeerSet fans messages out to connected peers. Broadcasts go to every peer,
// targeted sends to exactly one.
type PeerSet struct {
	mu    sync.RWMutex
	peers map[string]Peer
	log   zerolog.Logger
}

func NewPeerSet(log zerolog.Logger) *PeerSet {
	return &PeerSet{
		peers: make(map[string]Peer),
		log:   log,
	}
}

func (s *PeerSet) Add(p Peer) {
	s.mu.Lock()
	s.peers[p.Id()] = p
	s.mu.Unlock()
}

func (s *PeerSet) Remove(id string) {
	s.mu.Lock()
	delete(s.peers, id)
	s.mu.Unlock()
}

func (s *PeerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Broadcast sends msg to every connected peer. Send failures are logged and do
// not stop delivery to the rest.
func (s *PeerSet) Broadcast(msg any) {
	s.mu.RLock()
	targets := make([]Peer, 0, len(s.peers))
	for _, p := range s.peers {
		targets = append(targets, p)
	}
	s.mu.RUnlock()

	for _, p := range targets {
		if err := p.SendMessage(msg); err != nil {
			s.log.Error().Err(err).Str("peer", p.Id()).Msgf("broadcast %T failed", msg)
		}
	}
}

// SendTo sends msg to a single peer.
func (s *PeerSet) SendTo(id string, msg any) error {
	s.mu.RLock()
	p, ok := s.peers[id]
	s.mu.RUnlock()
	if !ok {
		return ErrUnknownPeer
	}
	return p.SendMessage(msg)
}

// sendTo is SendTo for fire-and-forget notifications.
func (s *PeerSet) sendTo(id string, msg any) {
	if id == "" {
		return
	}
	if err := s.SendTo(id, msg); err != nil {
		s.log.Error().Err(err).Str("peer", id).Msgf("send %T failed", msg)
	}
}
