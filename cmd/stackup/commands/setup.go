package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stackup-io/stackup/pkg/components"
	"github.com/stackup-io/stackup/pkg/config"
	"github.com/stackup-io/stackup/pkg/engine"
	"github.com/stackup-io/stackup/pkg/health"
	"github.com/stackup-io/stackup/pkg/stores"
	"github.com/stackup-io/stackup/pkg/telemetry"
)

// runtimeEnv bundles everything a command needs after configuration load.
type runtimeEnv struct {
	store    *config.Store
	settings *config.Settings
	log      *telemetry.Logger
	metrics  *telemetry.Metrics
	prober   *health.Prober
	registry *engine.Registry

	state   engine.StateStore
	history *stores.SQLiteStore
}

// newRuntimeEnv loads configuration and wires the shared components. When
// withState is false, no state backend is opened (plan and config
// commands only need the catalog).
func newRuntimeEnv(ctx context.Context, withState bool) (*runtimeEnv, error) {
	store, err := config.Load(overridePath)
	if err != nil {
		return nil, err
	}
	settings, err := config.NewSettings(store)
	if err != nil {
		return nil, err
	}

	level := settings.LogLevel
	if verbose {
		level = "debug"
	}
	log, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  level,
		Format: settings.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	metrics := telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:    settings.MetricsEnabled,
		Namespace:  "stackup",
		ListenAddr: settings.MetricsListen,
	})
	prober := health.NewProber(log, metrics)

	env := &runtimeEnv{
		store:    store,
		settings: settings,
		log:      log,
		metrics:  metrics,
		prober:   prober,
		registry: components.NewCatalog(settings, prober, log),
	}

	if !withState {
		return env, nil
	}

	// State backends live under the state dir, which the environment
	// component also creates; ensure it exists before the first run.
	if err := os.MkdirAll(settings.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	history, err := stores.NewSQLiteStore(stores.Config{
		Path: filepath.Join(settings.StateDir, "history.db"),
	})
	if err != nil {
		return nil, err
	}

	switch stateBackend {
	case "marker":
		marker, err := stores.NewMarkerStore(settings.StateDir)
		if err != nil {
			return nil, err
		}
		env.state = marker
		if err := history.Init(ctx); err != nil {
			return nil, err
		}
		env.history = history
	case "sqlite":
		if err := history.Init(ctx); err != nil {
			return nil, err
		}
		env.state = history
		env.history = history
	default:
		return nil, fmt.Errorf("unknown state store backend %q (want marker or sqlite)", stateBackend)
	}

	return env, nil
}

// close releases state backends.
func (e *runtimeEnv) close() {
	if e.history != nil {
		_ = e.history.Close()
	}
}

// requestedComponents builds the requested set from the install/plan
// flags: --only restricts, --with adds, --all takes everything. With no
// selection flags the whole catalog is requested.
func (e *runtimeEnv) requestedComponents(only, with []string, all bool) []string {
	if all || (len(only) == 0 && len(with) == 0) {
		return e.registry.IDs()
	}
	requested := make([]string, 0, len(only)+len(with))
	requested = append(requested, only...)
	requested = append(requested, with...)
	return requested
}
