// Package session wires the index, translation, pool and filter components
// of one open project.
package session

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"

	"github.com/inodb/vibe-sync/internal/filter"
	"github.com/inodb/vibe-sync/internal/posarray"
)

// Config holds the tunables of a session. It is read from viper so the same
// keys work in ~/.vibe-sync.yaml, VIBESYNC_* variables and flags.
type Config struct {
	Parallelism int           `mapstructure:"parallelism"`
	Index       IndexConfig   `mapstructure:"index"`
	Filters     FilterConfig  `mapstructure:"filters"`
	Display     DisplayConfig `mapstructure:"display"`
	DB          DBConfig      `mapstructure:"db"`
}

type IndexConfig struct {
	MinIncrement int `mapstructure:"min_increment"`
	MaxIncrement int `mapstructure:"max_increment"`
}

type FilterConfig struct {
	FailClosed bool   `mapstructure:"fail_closed"`
	Dir        string `mapstructure:"dir"`
}

type DisplayConfig struct {
	ShowReference bool `mapstructure:"show_reference"`
	ShowFiltered  bool `mapstructure:"show_filtered"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("parallelism", runtime.NumCPU())
	v.SetDefault("index.min_increment", posarray.DefaultMinIncrement)
	v.SetDefault("index.max_increment", posarray.DefaultMaxIncrement)
	v.SetDefault("filters.fail_closed", false)
	v.SetDefault("filters.dir", "")
	v.SetDefault("display.show_reference", false)
	v.SetDefault("display.show_filtered", true)
	v.SetDefault("db.path", "")
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := LoadConfig(v)
	return cfg
}

// LoadConfig decodes v into a Config and validates it.
func LoadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	if c.Index.MinIncrement < 1 || c.Index.MaxIncrement < c.Index.MinIncrement {
		return fmt.Errorf("invalid index increments [%d, %d]", c.Index.MinIncrement, c.Index.MaxIncrement)
	}
	return nil
}

// FailurePolicy returns the filter failure policy the config selects.
func (c Config) FailurePolicy() filter.FailurePolicy {
	if c.Filters.FailClosed {
		return filter.FailClosed
	}
	return filter.FailOpen
}

func (c Config) indexOptions() []posarray.Option {
	return []posarray.Option{posarray.WithIncrements(c.Index.MinIncrement, c.Index.MaxIncrement)}
}
