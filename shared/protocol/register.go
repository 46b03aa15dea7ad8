package protocol

import (
	"github.com/automoto/frontline-mp/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
)

// Sync ID constants - ID 1 is reserved by necs for NetworkId
const (
	SyncIDNetTransform uint = 10
	SyncIDNetVelocity  uint = 11
	SyncIDNetCharacter uint = 12
	SyncIDNetWeapon    uint = 13
)

// Interpolation IDs (uint8 for WithInterpFn)
const (
	InterpIDNetTransform uint8 = 10
	InterpIDNetVelocity  uint8 = 11
)

// RegisterComponents registers all network components with necs for serialization.
// This must be called by both server and client before any network operations.
func RegisterComponents() error {
	// Register with interpolation for smooth client-side rendering
	if err := esync.RegisterComponent(
		SyncIDNetTransform,
		netcomponents.NetTransformData{},
		netcomponents.NetTransform,
		esync.WithInterpFn(InterpIDNetTransform, netcomponents.LerpNetTransform),
	); err != nil {
		return err
	}

	if err := esync.RegisterComponent(
		SyncIDNetVelocity,
		netcomponents.NetVelocityData{},
		netcomponents.NetVelocity,
		esync.WithInterpFn(InterpIDNetVelocity, netcomponents.LerpNetVelocity),
	); err != nil {
		return err
	}

	// Character and weapon state: no interpolation (discrete state changes)
	if err := esync.RegisterComponent(
		SyncIDNetCharacter,
		netcomponents.NetCharacterData{},
		netcomponents.NetCharacter,
	); err != nil {
		return err
	}

	return esync.RegisterComponent(
		SyncIDNetWeapon,
		netcomponents.NetWeaponData{},
		netcomponents.NetWeapon,
	)
}
