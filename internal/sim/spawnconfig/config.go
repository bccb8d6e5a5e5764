package spawnconfig

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelspawn.ai/internal/sim/spawn"
)

type Config struct {
	Spawn         SpawnSpec  `yaml:"spawn"`
	Events        EventsSpec `yaml:"events"`
	EnabledWorlds []string   `yaml:"enabled_worlds"`
}

type SpawnSpec struct {
	X                AxisSpec `yaml:"x"`
	Y                AxisSpec `yaml:"y"`
	Z                AxisSpec `yaml:"z"`
	ForceGroundSpawn bool     `yaml:"force_ground_spawn"`
	MaxTries         int      `yaml:"max_tries"`
}

type AxisSpec struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type EventsSpec struct {
	FirstJoin      bool `yaml:"first_join"`
	RespawnOnDeath bool `yaml:"respawn_on_death"`
}

func Defaults() Config {
	return Config{
		Spawn: SpawnSpec{
			X:                AxisSpec{Min: -1000, Max: 1000},
			Y:                AxisSpec{Min: 64, Max: 128},
			Z:                AxisSpec{Min: -1000, Max: 1000},
			ForceGroundSpawn: true,
			MaxTries:         50,
		},
		Events: EventsSpec{
			FirstJoin:      true,
			RespawnOnDeath: true,
		},
	}
}

// Load reads spawn.yaml on top of the defaults. An empty path yields the
// defaults. Inverted axis ranges are kept as written; the search normalizes them.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("spawn.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("spawn.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if c.Spawn.MaxTries < 0 {
		c.Spawn.MaxTries = 0
	}
	seen := map[string]bool{}
	out := c.EnabledWorlds[:0]
	for _, id := range c.EnabledWorlds {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	c.EnabledWorlds = out
}

// Validate checks enabled worlds against the known world ids. A nil known list
// skips the membership check.
func (c Config) Validate(known ...string) error {
	if len(known) == 0 {
		return nil
	}
	ids := map[string]bool{}
	for _, id := range known {
		ids[id] = true
	}
	for _, id := range c.EnabledWorlds {
		if !ids[id] {
			return fmt.Errorf("enabled world %q is not configured", id)
		}
	}
	return nil
}

// ToCore converts the file form into the search snapshot.
func (c Config) ToCore() spawn.Config {
	return spawn.Config{
		X:                spawn.Range{Min: c.Spawn.X.Min, Max: c.Spawn.X.Max},
		Y:                spawn.Range{Min: c.Spawn.Y.Min, Max: c.Spawn.Y.Max},
		Z:                spawn.Range{Min: c.Spawn.Z.Min, Max: c.Spawn.Z.Max},
		ForceGroundSpawn: c.Spawn.ForceGroundSpawn,
		MaxTries:         c.Spawn.MaxTries,
		FirstJoin:        c.Events.FirstJoin,
		RespawnOnDeath:   c.Events.RespawnOnDeath,
		EnabledWorlds:    append([]string(nil), c.EnabledWorlds...),
	}
}
