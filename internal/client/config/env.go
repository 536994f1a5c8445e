package config

import "github.com/caarlos0/env/v6"

// parseEnv overlays Config with values from TIMECAPSULE_* environment
// variables (see the env struct tags on Config). Unset variables leave the
// current values untouched. Panics on malformed values, mirroring the JSON
// and flag stages.
func parseEnv(cfg *Config) {
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
