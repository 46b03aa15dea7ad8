// Package config loads server configuration from defaults, an optional config
// file and FRONTLINE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/character"
	"github.com/spf13/viper"
)

// ConfigName is the config file stem searched for in the config directory.
const ConfigName = "frontline"

// ServerConfig contains listener, loop and map settings.
type ServerConfig struct {
	Port            uint          `mapstructure:"port"`
	TickRate        int           `mapstructure:"tickRate"`
	Name            string        `mapstructure:"name"`
	Version         string        `mapstructure:"version"` // Required client version, empty accepts any
	AssetsDir       string        `mapstructure:"assetsDir"`
	Map             string        `mapstructure:"map"`
	MapReadyTimeout time.Duration `mapstructure:"mapReadyTimeout"`
	MapRetryDelay   time.Duration `mapstructure:"mapRetryDelay"`
	MapRetries      int           `mapstructure:"mapRetries"`
}

// PlayerConfig contains per-player settings.
type PlayerConfig struct {
	MaxHealth float64 `mapstructure:"maxHealth"`
}

// WeaponsConfig selects the weapon catalog and the weapon granted on join.
type WeaponsConfig struct {
	CatalogFile    string        `mapstructure:"catalogFile"` // Empty uses the built-in catalog
	Default        string        `mapstructure:"default"`
	SwitchCooldown time.Duration `mapstructure:"switchCooldown"`
}

// Config is the full server configuration.
type Config struct {
	LogLevel  string                   `mapstructure:"logLevel"`
	Server    ServerConfig             `mapstructure:"server"`
	Player    PlayerConfig             `mapstructure:"player"`
	Movement  character.MovementConfig `mapstructure:"movement"`
	Collision arena.Config             `mapstructure:"collision"`
	Weapons   WeaponsConfig            `mapstructure:"weapons"`
}

// SetDefaults registers a default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")

	v.SetDefault("server.port", 7373)
	v.SetDefault("server.tickRate", 50)
	v.SetDefault("server.name", "Frontline Server")
	v.SetDefault("server.version", "")
	v.SetDefault("server.assetsDir", "assets")
	v.SetDefault("server.map", "proving_grounds")
	v.SetDefault("server.mapReadyTimeout", "10s")
	v.SetDefault("server.mapRetryDelay", "250ms")
	v.SetDefault("server.mapRetries", 8)

	v.SetDefault("player.maxHealth", 100.0)

	m := character.DefaultMovementConfig()
	v.SetDefault("movement.walkSpeed", m.WalkSpeed)
	v.SetDefault("movement.walkResponse", m.WalkResponse)
	v.SetDefault("movement.sprintSpeed", m.SprintSpeed)
	v.SetDefault("movement.crouchSpeed", m.CrouchSpeed)
	v.SetDefault("movement.crouchResponse", m.CrouchResponse)
	v.SetDefault("movement.airSpeed", m.AirSpeed)
	v.SetDefault("movement.airAcceleration", m.AirAcceleration)
	v.SetDefault("movement.jumpSpeed", m.JumpSpeed)
	v.SetDefault("movement.coyoteTime", m.CoyoteTime)
	v.SetDefault("movement.jumpSustainGravity", m.JumpSustainGravity)
	v.SetDefault("movement.gravity", m.Gravity)
	v.SetDefault("movement.slideStartSpeed", m.SlideStartSpeed)
	v.SetDefault("movement.slideEndSpeed", m.SlideEndSpeed)
	v.SetDefault("movement.slideFriction", m.SlideFriction)
	v.SetDefault("movement.slideSteerAcceleration", m.SlideSteerAcceleration)
	v.SetDefault("movement.slideGravity", m.SlideGravity)
	v.SetDefault("movement.radius", m.Radius)
	v.SetDefault("movement.standHeight", m.StandHeight)
	v.SetDefault("movement.crouchHeight", m.CrouchHeight)

	c := arena.DefaultConfig()
	v.SetDefault("collision.maxStableSlope", c.MaxStableSlope)
	v.SetDefault("collision.maxStepHeight", c.MaxStepHeight)
	v.SetDefault("collision.groundProbeDistance", c.GroundProbeDistance)
	v.SetDefault("collision.cellSize", c.CellSize)

	v.SetDefault("weapons.catalogFile", "")
	v.SetDefault("weapons.default", "rifle")
	v.SetDefault("weapons.switchCooldown", "500ms")
}

// Load reads configuration from v. A config file named frontline.{yaml,json,toml}
// in configDir is optional; configDir may be empty.
func Load(v *viper.Viper, configDir string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("FRONTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configDir != "" {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.TickRate <= 0:
		return fmt.Errorf("server.tickRate must be positive, got %d", c.Server.TickRate)
	case c.Server.Map == "":
		return errors.New("server.map is empty")
	case c.Server.MapReadyTimeout <= 0:
		return errors.New("server.mapReadyTimeout must be positive")
	case c.Player.MaxHealth <= 0:
		return fmt.Errorf("player.maxHealth must be positive, got %v", c.Player.MaxHealth)
	case c.Weapons.Default == "":
		return errors.New("weapons.default is empty")
	}
	return nil
}
