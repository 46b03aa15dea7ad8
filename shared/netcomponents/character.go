package netcomponents

import (
	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/yohamta/donburi"
)

type NetCharacterData struct {
	Stance       netconfig.Stance
	Grounded     bool
	Alive        bool   // False while dead or waiting to spawn
	LastSequence uint32 // Last input sequence processed by the server (for prediction reconciliation)
	IsLocal      bool   // Client-side only, not synced
}

var NetCharacter = donburi.NewComponentType[NetCharacterData]()
