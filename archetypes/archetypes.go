package archetypes

import (
	"github.com/automoto/frontline-mp/components"
	"github.com/automoto/frontline-mp/shared/netcomponents"
	"github.com/automoto/frontline-mp/tags"
	"github.com/yohamta/donburi"
)

var (
	Player = newArchetype(
		tags.Player,
		components.Player,
		netcomponents.NetTransform,
		netcomponents.NetVelocity,
		netcomponents.NetCharacter,
		netcomponents.NetWeapon,
	)
)

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

func (a *archetype) Spawn(world donburi.World, cs ...donburi.IComponentType) *donburi.Entry {
	return world.Entry(world.Create(append(a.components, cs...)...))
}
