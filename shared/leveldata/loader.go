package leveldata

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lafriks/go-tiled"
)

// Object group names read from a TMX map.
const (
	GroupSolids = "Solids"
	GroupSpawns = "PlayerSpawn"
)

// LoadLevel parses a TMX file and returns its solids and player spawn points.
// It takes an fs.FS so callers can pass embed.FS or os.DirFS.
func LoadLevel(fsys fs.FS, tmxPath string) (*LevelData, error) {
	levelMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	data := &LevelData{
		Name:  strings.TrimSuffix(filepath.Base(tmxPath), ".tmx"),
		Width: float64(levelMap.Width*levelMap.TileWidth) * UnitsPerPixel,
		Depth: float64(levelMap.Height*levelMap.TileHeight) * UnitsPerPixel,
	}

	for _, og := range levelMap.ObjectGroups {
		switch og.Name {
		case GroupSolids:
			for _, o := range og.Objects {
				s, err := solidFromObject(o)
				if err != nil {
					return nil, fmt.Errorf("%s: solid %d: %w", tmxPath, o.ID, err)
				}
				data.Solids = append(data.Solids, s)
			}
		case GroupSpawns:
			for _, o := range og.Objects {
				data.SpawnPoints = append(data.SpawnPoints, SpawnPoint{
					Position: mgl64.Vec3{
						o.X * UnitsPerPixel,
						o.Properties.GetFloat("elevation"),
						o.Y * UnitsPerPixel,
					},
					Yaw:   mgl64.DegToRad(o.Properties.GetFloat("yaw")),
					Index: o.Properties.GetInt("spawnIndex"),
				})
			}
		}
	}

	if len(data.Solids) == 0 {
		return nil, fmt.Errorf("%s: no objects in %q group", tmxPath, GroupSolids)
	}

	// Sort spawns by index for consistent selection
	sort.SliceStable(data.SpawnPoints, func(i, j int) bool {
		return data.SpawnPoints[i].Index < data.SpawnPoints[j].Index
	})

	return data, nil
}

func solidFromObject(o *tiled.Object) (Solid, error) {
	s := Solid{
		MinX:   o.X * UnitsPerPixel,
		MinZ:   o.Y * UnitsPerPixel,
		MaxX:   (o.X + o.Width) * UnitsPerPixel,
		MaxZ:   (o.Y + o.Height) * UnitsPerPixel,
		Bottom: o.Properties.GetFloat("bottom"),
		Top:    o.Properties.GetFloat("top"),
		Ramp:   RampDir(o.Properties.GetString("ramp")),
	}
	if s.MaxX <= s.MinX || s.MaxZ <= s.MinZ {
		return s, fmt.Errorf("empty footprint")
	}
	if s.Top <= s.Bottom {
		return s, fmt.Errorf("top %.2f not above bottom %.2f", s.Top, s.Bottom)
	}
	if _, ok := s.Ramp.Axis(); s.Ramp != RampNone && !ok {
		return s, fmt.Errorf("unknown ramp direction %q", s.Ramp)
	}
	return s, nil
}

// LoadAllLevels discovers all .tmx files in levelsDir within fsys, loads each,
// and returns a map keyed by stem name plus a sorted list of names.
func LoadAllLevels(fsys fs.FS, levelsDir string) (map[string]*LevelData, []string, error) {
	pattern := levelsDir + "/*.tmx"
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("no .tmx files found in %s", levelsDir)
	}

	levels := make(map[string]*LevelData, len(matches))
	names := make([]string, 0, len(matches))

	for _, path := range matches {
		data, err := LoadLevel(fsys, path)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		levels[data.Name] = data
		names = append(names, data.Name)
	}

	sort.Strings(names)
	return levels, names, nil
}
