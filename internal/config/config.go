// Package config loads the converter configuration from YAML, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"mask2coco/internal/palette"
	"mask2coco/pkg/geometry"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MASK2COCO_WORKERS.
const EnvPrefix = "MASK2COCO"

type Config struct {
	InputDir string         `mapstructure:"input_dir"`
	Output   string         `mapstructure:"output"`
	Workers  int            `mapstructure:"workers"`
	Tracer   string         `mapstructure:"tracer"`
	Image    ImageConfig    `mapstructure:"image"`
	Palette  []palette.Spec `mapstructure:"palette"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ImageConfig is the size written on every image entry. It is not measured
// from the masks.
type ImageConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load reads the YAML file at path. A missing file leaves the defaults in
// place; a malformed one is an error. Environment variables override both,
// after .env in the working directory has been loaded.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "masks")
	v.SetDefault("output", "output.json")
	v.SetDefault("workers", 4)
	v.SetDefault("tracer", "native")

	v.SetDefault("image.width", 1664)
	v.SetDefault("image.height", 832)

	v.SetDefault("palette", paletteDefault(palette.StreetScene))

	v.SetDefault("log.mode", "development")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("postgres.dsn", "")

	v.SetDefault("metrics.textfile", "")
}

// paletteDefault spells specs the way they would appear in YAML so the
// default decodes through the same path as a configured palette.
func paletteDefault(specs []palette.Spec) []map[string]string {
	out := make([]map[string]string, len(specs))
	for i, s := range specs {
		out[i] = map[string]string{"color": s.Color, "label": s.Label}
	}
	return out
}

// Validate checks the values that cannot be fixed up later.
func (c *Config) Validate() error {
	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", c.Image.Width, c.Image.Height)
	}
	if _, err := palette.New(c.Palette); err != nil {
		return fmt.Errorf("invalid palette: %w", err)
	}
	return nil
}

// BuildPalette parses the configured palette.
func (c *Config) BuildPalette() (*palette.Palette, error) {
	return palette.New(c.Palette)
}

// ImageSize returns the size reported for every image.
func (c *Config) ImageSize() geometry.Size {
	return geometry.Size{Width: c.Image.Width, Height: c.Image.Height}
}
