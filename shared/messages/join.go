package messages

import "github.com/leap-fish/necs/esync"

// JoinRequest opens the handshake. ReconnectToken is empty on a first join.
type JoinRequest struct {
	Version        string
	PlayerName     string
	ReconnectToken string
}

// JoinAccepted is sent only to the joining peer. Its character starts parked
// until it sends a SpawnRequest.
type JoinAccepted struct {
	NetworkID      esync.NetworkId
	ReconnectToken string
	ServerName     string
	TickRate       int
	Map            string
}

// RejectCode tells a client whether retrying the join can help.
type RejectCode int

const (
	RejectVersion RejectCode = iota + 1
	RejectServerError
)

type JoinRejected struct {
	Code   RejectCode
	Reason string
}

// MapLoadedEvent is broadcast after the server switches to a new map.
type MapLoadedEvent struct {
	Name string
}
