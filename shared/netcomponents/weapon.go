package netcomponents

import "github.com/yohamta/donburi"

// NetWeaponData is the read-only replicated copy of a player's weapon state.
// Health is intentionally not replicated; owners receive it by targeted
// message only.
type NetWeaponData struct {
	WeaponID     string
	MagazineSize int
	CurrentAmmo  int
	Reloading    bool
}

var NetWeapon = donburi.NewComponentType[NetWeaponData]()
