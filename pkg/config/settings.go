package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stackup-io/stackup/pkg/engine"
)

// Settings is the typed view of the configuration consumed by the CLI and
// the builtin component catalog. Validation tags catch out-of-range
// values after the raw key-value merge.
type Settings struct {
	StateDir   string `validate:"required"`
	ComposeDir string `validate:"required"`
	ModulesDir string `validate:"required"`
	DockerBin  string `validate:"required"`

	LogLevel    string `validate:"oneof=trace debug info warn error"`
	LogFormat   string `validate:"oneof=console json"`
	TraceExport string `validate:"oneof=stdout none"`

	TimescaleDBHost string `validate:"required"`
	TimescaleDBPort int    `validate:"min=1,max=65535"`
	TimescaleDBUser string `validate:"required"`
	RedisHost       string `validate:"required"`
	RedisPort       int    `validate:"min=1,max=65535"`
	VaultAddr       string `validate:"required,url"`
	PrometheusAddr  string `validate:"required,url"`
	GrafanaAddr     string `validate:"required,url"`

	ProbeMaxAttempts int           `validate:"min=1"`
	ProbeInterval    time.Duration `validate:"min=0"`
	ProbeHTTPTimeout time.Duration `validate:"min=0"`

	MetricsEnabled bool
	MetricsListen  string `validate:"required"`
}

// NewSettings parses and validates the typed settings from a Store.
func NewSettings(store *Store) (*Settings, error) {
	s := &Settings{
		StateDir:    store.String("state_dir"),
		ComposeDir:  store.String("compose_dir"),
		ModulesDir:  store.String("modules_dir"),
		DockerBin:   store.String("docker_bin"),
		LogLevel:    store.String("log_level"),
		LogFormat:   store.String("log_format"),
		TraceExport: store.String("trace_export"),

		TimescaleDBHost: store.String("timescaledb_host"),
		TimescaleDBUser: store.String("timescaledb_user"),
		RedisHost:       store.String("redis_host"),
		VaultAddr:       store.String("vault_addr"),
		PrometheusAddr:  store.String("prometheus_addr"),
		GrafanaAddr:     store.String("grafana_addr"),
		MetricsListen:   store.String("metrics_listen"),
	}

	var err error
	if s.TimescaleDBPort, err = store.Int("timescaledb_port"); err != nil {
		return nil, err
	}
	if s.RedisPort, err = store.Int("redis_port"); err != nil {
		return nil, err
	}
	if s.ProbeMaxAttempts, err = store.Int("probe_max_attempts"); err != nil {
		return nil, err
	}
	if s.ProbeInterval, err = store.Duration("probe_interval"); err != nil {
		return nil, err
	}
	if s.ProbeHTTPTimeout, err = store.Duration("probe_http_timeout"); err != nil {
		return nil, err
	}
	if s.MetricsEnabled, err = store.Bool("metrics_enabled"); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(s); err != nil {
		return nil, engine.NewError(engine.KindInvalidValue,
			fmt.Sprintf("configuration validation failed: %v", err), err)
	}
	return s, nil
}

// TimescaleDBAddr returns the host:port probe address for TimescaleDB.
func (s *Settings) TimescaleDBAddr() string {
	return fmt.Sprintf("%s:%d", s.TimescaleDBHost, s.TimescaleDBPort)
}

// RedisAddr returns the host:port probe address for Redis.
func (s *Settings) RedisAddr() string {
	return fmt.Sprintf("%s:%d", s.RedisHost, s.RedisPort)
}
