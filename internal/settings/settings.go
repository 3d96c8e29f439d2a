// Package settings binds the coordinator's tunable overrides —
// everything that is not part of a scene, only how the coordinator
// itself behaves — to environment variables via viper, the way
// the-mhdi-eSIaaS/pkg/config layers viper over its own config
// surface. Unlike that config, there is no backing file: the
// coordinator's structural configuration lives in the config and
// scene Lua scripts (internal/script); Tunables only covers knobs an
// operator might want to override without touching those scripts.
package settings

import (
	"time"

	"github.com/spf13/viper"
)

// Tunables are the coordinator's operator-facing overrides, all
// optional and defaulted.
type Tunables struct {
	DefaultPort      int           `mapstructure:"default_port"`
	WriteBufferBytes int           `mapstructure:"write_buffer_bytes"`
	FlushPeriod      time.Duration `mapstructure:"flush_period"`
	StatsPeriod      time.Duration `mapstructure:"stats_period"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
}

// Load reads Tunables from FLEXRENDER_-prefixed environment variables,
// falling back to defaults for anything unset.
func Load() (Tunables, error) {
	v := viper.New()
	v.SetEnvPrefix("FLEXRENDER")
	v.AutomaticEnv()

	v.SetDefault("default_port", 19400)
	v.SetDefault("write_buffer_bytes", 64*1024)
	v.SetDefault("flush_period", 10*time.Millisecond)
	v.SetDefault("stats_period", 100*time.Millisecond)
	v.SetDefault("metrics_addr", ":9090")

	var t Tunables
	if err := v.Unmarshal(&t); err != nil {
		return Tunables{}, err
	}
	return t, nil
}
