package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/c360/cachestats/errors"
)

// Loader merges configuration layers over the defaults. Later layers override
// earlier ones key by key; lists are replaced whole.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "CACHESTATS",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapFatal(
				fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, path, err),
				"Loader", "Load", "load layer")
		}
		merged = deepMergeMaps(merged, raw)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode merged config")
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"Loader", "Load", "decode merged config")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "apply environment overrides")
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", "validate config")
		}
	}

	return cfg, nil
}

// loadRaw reads one layer as a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, format, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch format {
	case formatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		if err := checkJSONDepth(data); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidData, err)
		}
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrParsingFailed, err)
	}

	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMergeMaps returns base with override applied; nested maps merge, everything else replaces
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if overrideMap, ok := v.(map[string]any); ok {
			if baseMap, ok := result[k].(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	lookup := func(suffix string) (string, bool, error) {
		key := l.envPrefix + "_" + suffix
		val, ok := os.LookupEnv(key)
		if !ok || val == "" {
			return "", false, nil
		}
		if err := checkEnv(key, val); err != nil {
			return "", false, err
		}
		return val, true, nil
	}

	if val, ok, err := lookup("LOG_LEVEL"); err != nil {
		return err
	} else if ok {
		cfg.Log.Level = val
	}
	if val, ok, err := lookup("LOG_FORMAT"); err != nil {
		return err
	} else if ok {
		cfg.Log.Format = val
	}
	if val, ok, err := lookup("METRICS_PORT"); err != nil {
		return err
	} else if ok {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s_METRICS_PORT: %v", errors.ErrInvalidConfig, l.envPrefix, err)
		}
		cfg.Metrics.Port = port
	}
	if val, ok, err := lookup("NATS_URL"); err != nil {
		return err
	} else if ok {
		cfg.NATS.URL = val
	}
	if val, ok, err := lookup("NATS_ENABLED"); err != nil {
		return err
	} else if ok {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%w: %s_NATS_ENABLED: %v", errors.ErrInvalidConfig, l.envPrefix, err)
		}
		cfg.NATS.Enabled = enabled
	}

	return nil
}
