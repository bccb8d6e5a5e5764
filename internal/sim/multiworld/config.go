package multiworld

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelspawn.ai/internal/sim/terrain/gen"
	"voxelspawn.ai/internal/sim/terrain/store"
)

type Config struct {
	DefaultWorldID string      `yaml:"default_world_id"`
	Seed           int64       `yaml:"seed"`
	Worlds         []WorldSpec `yaml:"worlds"`
}

type WorldSpec struct {
	ID              string `yaml:"id"`
	Type            string `yaml:"type"`
	SeedOffset      int64  `yaml:"seed_offset"`
	Height          int    `yaml:"height"`
	SeaLevel        int    `yaml:"sea_level"`
	Amplitude       int    `yaml:"amplitude"`
	BiomeRegionSize int    `yaml:"biome_region_size"`
	HazardPermille  int    `yaml:"hazard_permille"`
	BoundaryR       int    `yaml:"boundary_r"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg = Config{}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultWorldID: "OVERWORLD",
		Seed:           1337,
		Worlds: []WorldSpec{
			{ID: "OVERWORLD", Type: "OVERWORLD", Height: 128, BoundaryR: 4000},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	for i := range c.Worlds {
		w := &c.Worlds[i]
		w.ID = strings.TrimSpace(w.ID)
		if strings.TrimSpace(w.Type) == "" {
			w.Type = w.ID
		}
		if w.Height <= 0 {
			w.Height = 128
		}
	}
	if strings.TrimSpace(c.DefaultWorldID) == "" && len(c.Worlds) > 0 {
		c.DefaultWorldID = c.Worlds[0].ID
	}
}

func (c Config) Validate() error {
	c.Normalize()
	if len(c.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]bool{}
	for _, w := range c.Worlds {
		if w.ID == "" {
			return fmt.Errorf("world id must not be empty")
		}
		if seen[w.ID] {
			return fmt.Errorf("duplicate world id: %s", w.ID)
		}
		seen[w.ID] = true
		if w.Height < 8 || w.Height > 4096 {
			return fmt.Errorf("world %s height must be in [8, 4096]", w.ID)
		}
		if w.SeaLevel < 0 || w.SeaLevel >= w.Height {
			return fmt.Errorf("world %s sea_level must be in [0, height)", w.ID)
		}
		if w.BoundaryR < 0 {
			return fmt.Errorf("world %s boundary_r must be >= 0", w.ID)
		}
		if w.HazardPermille < 0 || w.HazardPermille > 10000 {
			return fmt.Errorf("world %s hazard_permille must be in [0, 10000]", w.ID)
		}
	}
	if !seen[c.DefaultWorldID] {
		return fmt.Errorf("default_world_id %q not found in worlds", c.DefaultWorldID)
	}
	return nil
}

// WorldIDs lists the default world first, then the rest in config order.
func (c Config) WorldIDs() []string {
	out := []string{c.DefaultWorldID}
	for _, w := range c.Worlds {
		if w.ID != c.DefaultWorldID {
			out = append(out, w.ID)
		}
	}
	return out
}

func (c Config) WorldSpecByID(id string) (WorldSpec, bool) {
	for _, w := range c.Worlds {
		if w.ID == id {
			return w, true
		}
	}
	return WorldSpec{}, false
}

// WorldGen builds the terrain parameters for one world.
func (c Config) WorldGen(w WorldSpec) store.WorldGen {
	return store.WorldGen{
		Params: gen.Params{
			Seed:            c.Seed + w.SeedOffset,
			Height:          w.Height,
			SeaLevel:        w.SeaLevel,
			Amplitude:       w.Amplitude,
			BiomeRegionSize: w.BiomeRegionSize,
			HazardPermille:  w.HazardPermille,
		},
		BoundaryR: w.BoundaryR,
	}
}
