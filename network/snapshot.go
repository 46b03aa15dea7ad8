package network

import (
	"github.com/automoto/frontline-mp/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
)

// EntityState is the decoded replicated state of one networked entity. Fields
// are nil when the snapshot did not carry that component.
type EntityState struct {
	ID        esync.NetworkId
	Transform *netcomponents.NetTransformData
	Velocity  *netcomponents.NetVelocityData
	Character *netcomponents.NetCharacterData
	Weapon    *netcomponents.NetWeaponData
}

// DecodeSnapshot deserializes every component of every entity in snapshot and
// flags local's character as IsLocal. Components that fail to decode are
// skipped.
func DecodeSnapshot(snapshot esync.WorldSnapshot, local esync.NetworkId) map[esync.NetworkId]EntityState {
	out := make(map[esync.NetworkId]EntityState, len(snapshot))
	for _, ent := range snapshot {
		state := EntityState{ID: ent.Id}
		for _, componentBytes := range ent.State {
			instance, err := esync.Mapper.Deserialize(componentBytes)
			if err != nil {
				continue
			}
			state.apply(instance)
		}
		if state.Character != nil {
			state.Character.IsLocal = ent.Id == local
		}
		out[ent.Id] = state
	}
	return out
}

func (s *EntityState) apply(instance any) {
	switch v := instance.(type) {
	case netcomponents.NetTransformData:
		s.Transform = &v
	case netcomponents.NetVelocityData:
		s.Velocity = &v
	case netcomponents.NetCharacterData:
		s.Character = &v
	case netcomponents.NetWeaponData:
		s.Weapon = &v
	}
}

// Alive reports whether the entity is a spawned, living character.
func (s EntityState) Alive() bool {
	return s.Character != nil && s.Character.Alive && s.Transform != nil
}
