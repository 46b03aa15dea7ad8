// Package components holds server-only ECS components. They are never synced;
// replicated state lives in shared/netcomponents.
package components

import (
	"github.com/yohamta/donburi"
)

// PlayerData links a player entity to the peer that owns it.
type PlayerData struct {
	PeerID string
	Name   string
}

var Player = donburi.NewComponentType[PlayerData]()
