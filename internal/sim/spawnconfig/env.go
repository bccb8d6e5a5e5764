package spawnconfig

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Overrides are optional environment settings applied after spawn.yaml.
// Unset variables leave the file value alone.
type Overrides struct {
	MaxTries       *int     `env:"VOXELSPAWN_MAX_TRIES"`
	ForceGround    *bool    `env:"VOXELSPAWN_FORCE_GROUND"`
	FirstJoin      *bool    `env:"VOXELSPAWN_FIRST_JOIN"`
	RespawnOnDeath *bool    `env:"VOXELSPAWN_RESPAWN_ON_DEATH"`
	EnabledWorlds  []string `env:"VOXELSPAWN_ENABLED_WORLDS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) ApplyEnv() error {
	var o Overrides
	if err := ParseEnv(&o); err != nil {
		return err
	}
	o.Apply(c)
	return nil
}

func (o Overrides) Apply(c *Config) {
	if o.MaxTries != nil {
		c.Spawn.MaxTries = *o.MaxTries
	}
	if o.ForceGround != nil {
		c.Spawn.ForceGroundSpawn = *o.ForceGround
	}
	if o.FirstJoin != nil {
		c.Events.FirstJoin = *o.FirstJoin
	}
	if o.RespawnOnDeath != nil {
		c.Events.RespawnOnDeath = *o.RespawnOnDeath
	}
	if len(o.EnabledWorlds) > 0 {
		c.EnabledWorlds = append([]string(nil), o.EnabledWorlds...)
	}
	c.Normalize()
}
