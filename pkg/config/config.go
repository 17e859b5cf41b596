package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stackup-io/stackup/pkg/engine"
)

// Defaults is the embedded default configuration. Every key consumed by a
// component action or health probe has an entry here, so a run can only
// fail on an invalid value, never on a missing key. Values are strings;
// typed access goes through the Store getters.
var Defaults = map[string]string{
	"state_dir":    "/var/lib/stackup",
	"compose_dir":  "/opt/stackup/compose",
	"modules_dir":  "/opt/stackup/modules",
	"docker_bin":   "docker",
	"environment":  "production",
	"log_level":    "info",
	"log_format":   "console",
	"trace_export": "none",

	"timescaledb_host": "127.0.0.1",
	"timescaledb_port": "5432",
	"timescaledb_user": "postgres",
	"redis_host":       "127.0.0.1",
	"redis_port":       "6379",
	"vault_addr":       "http://127.0.0.1:8200/v1/sys/health",
	"prometheus_addr":  "http://127.0.0.1:9090/-/ready",
	"grafana_addr":     "http://127.0.0.1:3000/api/health",

	"probe_max_attempts": "30",
	"probe_interval":     "2s",
	"probe_http_timeout": "5s",

	"metrics_enabled": "false",
	"metrics_listen":  "127.0.0.1:9464",
}

// Store is an immutable merged key-value configuration for one run.
// Override values win over defaults; unknown override keys are retained
// but never consulted.
type Store struct {
	values   map[string]string
	defaults map[string]string
}

// Load builds a Store from Defaults plus an optional override file. An
// empty overridePath means defaults only. A non-empty path that does not
// exist is fatal: the override is opt-in per call site, and asking for a
// file that is missing is an operator error.
func Load(overridePath string) (*Store, error) {
	return LoadWithDefaults(Defaults, overridePath)
}

// LoadWithDefaults is Load with an explicit default table, used by tests.
func LoadWithDefaults(defaults map[string]string, overridePath string) (*Store, error) {
	values := make(map[string]string, len(defaults))
	for k, v := range defaults {
		values[k] = v
	}

	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, engine.NewError(engine.KindConfigNotFound,
					fmt.Sprintf("override file %q not found", overridePath), err)
			}
			return nil, engine.NewError(engine.KindConfigNotFound,
				fmt.Sprintf("override file %q not readable", overridePath), err)
		}

		overrides := make(map[string]string)
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return nil, engine.NewError(engine.KindInvalidValue,
				fmt.Sprintf("override file %q is not a flat key-value document", overridePath), err)
		}
		for k, v := range overrides {
			values[k] = v
		}
	}

	return &Store{values: values, defaults: defaults}, nil
}

// String returns the value for key, falling back to the default table.
func (s *Store) String(key string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return s.defaults[key]
}

// Int returns the value for key parsed as an integer.
func (s *Store) Int(key string) (int, error) {
	raw := s.String(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, engine.NewError(engine.KindInvalidValue,
			fmt.Sprintf("key %q: %q is not an integer", key, raw), err)
	}
	return n, nil
}

// Bool returns the value for key parsed as a boolean.
func (s *Store) Bool(key string) (bool, error) {
	raw := s.String(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, engine.NewError(engine.KindInvalidValue,
			fmt.Sprintf("key %q: %q is not a boolean", key, raw), err)
	}
	return b, nil
}

// Duration returns the value for key parsed as a time.Duration.
func (s *Store) Duration(key string) (time.Duration, error) {
	raw := s.String(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, engine.NewError(engine.KindInvalidValue,
			fmt.Sprintf("key %q: %q is not a duration", key, raw), err)
	}
	return d, nil
}

// Keys returns all keys in the merged mapping, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the merged mapping.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Materialize writes the merged mapping to path as a flat YAML document,
// the format consumed by subsequent invocations via the override flag.
func (s *Store) Materialize(path string) error {
	raw, err := yaml.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration to %s: %w", path, err)
	}
	return nil
}
