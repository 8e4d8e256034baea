package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SHARP_FRAMES_WORKERS.
	EnvPrefix = "SHARP_FRAMES_"

	// EnvConfigFile names a YAML config file when no path is passed to Load.
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// listKeys are the config keys decoded from comma separated environment values.
var listKeys = map[string]bool{
	"extensions": true,
}

// envValue maps an environment variable onto its config key and value.
func envValue(name, value string) (string, interface{}) {
	key := strings.TrimPrefix(strings.ToLower(name), strings.ToLower(EnvPrefix))
	if !listKeys[key] {
		return key, value
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// Load builds a Config by layering defaults, an optional YAML file and
// environment variables, then validates it.
//
// path names the YAML file; when empty, SHARP_FRAMES_CONFIG is consulted.
// Environment keys map by lower-casing and stripping the prefix:
// SHARP_FRAMES_MAX_DIMENSION -> max_dimension. List keys take a comma
// separated value: SHARP_FRAMES_EXTENSIONS=".jpg,.png".
func Load(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
