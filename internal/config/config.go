// Package config loads the five grants-cache tunables from spec.md §6
// via Viper: environment variables (prefixed GRANTSAUTH_) take
// precedence over a config file, which takes precedence over the
// defaults set here.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Options is the typed configuration surface consumed by
// cmd/grantsauth to build a grants.Options.
type Options struct {
	// GrantsRefreshPeriodSeconds is the background-refresh cadence.
	// Zero disables background refresh.
	GrantsRefreshPeriodSeconds int `mapstructure:"grants_refresh_period_seconds"`
	// GrantsRefreshPoolSize bounds concurrent refresh fetches.
	GrantsRefreshPoolSize int `mapstructure:"grants_refresh_pool_size"`
	// GrantsMaxIdleTimeSeconds is the idleness threshold for skip/evict.
	GrantsMaxIdleTimeSeconds int `mapstructure:"grants_max_idle_time_seconds"`
	// HTTPRetries is the number of retries beyond the first fetch attempt.
	HTTPRetries int `mapstructure:"http_retries"`
	// GCPeriodSeconds is the garbage-collection cadence.
	GCPeriodSeconds int `mapstructure:"gc_period_seconds"`

	// GrantsEndpoint is the upstream grants-provider URL consumed by
	// internal/transport.HTTPFetcher. Not part of spec.md §6's core
	// five fields, but required to run `serve` end to end.
	GrantsEndpoint string `mapstructure:"grants_endpoint"`
}

const envPrefix = "GRANTSAUTH"

func defaults() map[string]any {
	return map[string]any{
		"grants_refresh_period_seconds":  60,
		"grants_refresh_pool_size":       4,
		"grants_max_idle_time_seconds":   900,
		"http_retries":                   2,
		"gc_period_seconds":              300,
		"grants_endpoint":                "",
	}
}

// Load reads configuration from, in ascending priority: built-in
// defaults, an optional file at path (if non-empty), and
// GRANTSAUTH_-prefixed environment variables.
func Load(path string) (*Options, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &opts, nil
}

// Validate enforces the bounds spec.md §6 places on each field.
func (o *Options) Validate() error {
	if o.GrantsRefreshPeriodSeconds < 0 {
		return fmt.Errorf("config: grants_refresh_period_seconds must be >= 0")
	}
	if o.GrantsRefreshPoolSize < 1 {
		return fmt.Errorf("config: grants_refresh_pool_size must be >= 1")
	}
	if o.GrantsMaxIdleTimeSeconds <= 0 {
		return fmt.Errorf("config: grants_max_idle_time_seconds must be > 0")
	}
	if o.HTTPRetries < 0 {
		return fmt.Errorf("config: http_retries must be >= 0")
	}
	if o.GCPeriodSeconds <= 0 {
		return fmt.Errorf("config: gc_period_seconds must be > 0")
	}
	return nil
}

// RefreshPeriod returns GrantsRefreshPeriodSeconds as a time.Duration.
func (o *Options) RefreshPeriod() time.Duration {
	return time.Duration(o.GrantsRefreshPeriodSeconds) * time.Second
}

// MaxIdle returns GrantsMaxIdleTimeSeconds as a time.Duration.
func (o *Options) MaxIdle() time.Duration {
	return time.Duration(o.GrantsMaxIdleTimeSeconds) * time.Second
}

// GCPeriod returns GCPeriodSeconds as a time.Duration.
func (o *Options) GCPeriod() time.Duration {
	return time.Duration(o.GCPeriodSeconds) * time.Second
}
