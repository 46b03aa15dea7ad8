package weapons

import (
	"fmt"
	"sort"
	"time"

	"github.com/automoto/frontline-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/viper"
)

// Catalog is an immutable set of weapon definitions keyed by id. It is safe
// for concurrent use.
type Catalog struct {
	defs map[string]Definition
	ids  []string
}

// NewCatalog validates defs and builds a catalog from them.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("weapon %q: %w", d.ID, err)
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("weapon %q defined twice", d.ID)
		}
		c.defs[d.ID] = d
		c.ids = append(c.ids, d.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

// LoadCatalog reads a "weapons" list from a yaml/json/toml file.
func LoadCatalog(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read weapon catalog: %w", err)
	}

	var defs []Definition
	if err := v.UnmarshalKey("weapons", &defs); err != nil {
		return nil, fmt.Errorf("decode weapon catalog: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("weapon catalog %s has no weapons", path)
	}
	return NewCatalog(defs...)
}

// Lookup returns the definition for id or ErrUnknownWeapon.
func (c *Catalog) Lookup(id string) (Definition, error) {
	d, ok := c.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownWeapon, id)
	}
	return d, nil
}

// IDs lists every weapon id in sorted order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// DefaultCatalog is the built-in armory used when no catalog file is
// configured.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultDefinitions()...)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultDefinitions() []Definition {
	sound := func(clip string, volume float64) Sound {
		return Sound{Clip: netconfig.ClipID(clip), Volume: volume, PitchMin: 95, PitchMax: 105}
	}
	return []Definition{
		{
			ID:                  "rifle",
			Damage:              25,
			MaxRange:            200,
			FireRateRPM:         600,
			MagazineSize:        30,
			Spread:              mgl64.Vec2{0.01, 0.01},
			Recoil:              mgl64.Vec2{0.5, 1.2},
			ReloadTime:          2 * time.Second,
			ReloadAnimationTime: 1800 * time.Millisecond,
			ShotSound:           sound("rifle_shot", 0.8),
			ReloadSound:         sound("rifle_reload", 0.6),
			EmptySound:          sound("dry_fire", 0.5),
		},
		{
			ID:                  "pistol",
			Damage:              35,
			MaxRange:            80,
			FireRateRPM:         300,
			MagazineSize:        12,
			Spread:              mgl64.Vec2{0.015, 0.015},
			Recoil:              mgl64.Vec2{0.3, 2},
			ReloadTime:          1200 * time.Millisecond,
			ReloadAnimationTime: time.Second,
			ShotSound:           sound("pistol_shot", 0.7),
			ReloadSound:         sound("pistol_reload", 0.6),
			EmptySound:          sound("dry_fire", 0.5),
		},
		{
			ID:                  "smg",
			Damage:              16,
			MaxRange:            60,
			FireRateRPM:         900,
			MagazineSize:        40,
			Spread:              mgl64.Vec2{0.03, 0.03},
			Recoil:              mgl64.Vec2{0.6, 0.8},
			ReloadTime:          1600 * time.Millisecond,
			ReloadAnimationTime: 1500 * time.Millisecond,
			ShotSound:           sound("smg_shot", 0.7),
			ReloadSound:         sound("smg_reload", 0.6),
			EmptySound:          sound("dry_fire", 0.5),
		},
	}
}
