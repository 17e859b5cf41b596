package components

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/stackup-io/stackup/pkg/config"
	"github.com/stackup-io/stackup/pkg/engine"
	"github.com/stackup-io/stackup/pkg/health"
	"github.com/stackup-io/stackup/pkg/telemetry"
)

// Builtin component identifiers. Registration order fixes the tie-break
// order of resolved plans, so the constants below are listed in their
// registration order.
const (
	Environment     = "environment"
	CoreInfra       = "core-infra"
	Auth            = "auth"
	APIGateway      = "api-gateway"
	Cluster         = "cluster"
	DeviceDiscovery = "device-discovery"
	Monitoring      = "monitoring"
)

// NewCatalog builds the builtin component registry for the monitoring
// stack: environment preparation, the core infrastructure services
// (TimescaleDB, Redis, Vault, Prometheus, Grafana via Docker Compose),
// and the dependent application modules.
func NewCatalog(cfg *config.Settings, prober *health.Prober, log *telemetry.Logger) *engine.Registry {
	if log == nil {
		log = telemetry.NopLogger()
	}
	alog := log.NewComponentLogger("action")

	policy := health.RetryPolicy{
		MaxAttempts: cfg.ProbeMaxAttempts,
		Interval:    cfg.ProbeInterval,
	}
	httpClient := &http.Client{Timeout: cfg.ProbeHTTPTimeout}

	reg := engine.NewRegistry()

	reg.MustRegister(engine.Component{
		ID:          Environment,
		Description: "prepare directories and verify the Docker daemon",
		Action: Steps{
			engine.ActionFunc(func(_ context.Context) error {
				for _, dir := range []string{cfg.StateDir, cfg.ComposeDir, cfg.ModulesDir} {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("failed to create %s: %w", dir, err)
					}
				}
				if _, err := exec.LookPath(cfg.DockerBin); err != nil {
					return fmt.Errorf("docker binary %q not found: %w", cfg.DockerBin, err)
				}
				return nil
			}),
			// The daemon must answer, not just the binary exist.
			ProbeStep(prober, "docker-daemon",
				health.CommandCheck(cfg.DockerBin, "info"), policy),
		},
	})

	reg.MustRegister(engine.Component{
		ID:          CoreInfra,
		Description: "bring up TimescaleDB, Redis, Vault, Prometheus, and Grafana",
		DependsOn:   []string{Environment},
		Action: Steps{
			(&ExecAction{
				Name: "compose-up",
				Argv: []string{cfg.DockerBin, "compose", "up", "-d"},
				Dir:  cfg.ComposeDir,
			}).WithLogger(alog),
			ProbeStep(prober, "timescaledb",
				health.TCPCheck(cfg.TimescaleDBAddr(), cfg.ProbeHTTPTimeout), policy),
			ProbeStep(prober, "timescaledb-ready",
				health.PostgresReadyCheck("timescaledb", cfg.TimescaleDBUser), policy),
			ProbeStep(prober, "redis",
				health.TCPCheck(cfg.RedisAddr(), cfg.ProbeHTTPTimeout), policy),
			ProbeStep(prober, "vault",
				health.HTTPCheck(httpClient, cfg.VaultAddr), policy),
			ProbeStep(prober, "prometheus",
				health.HTTPCheck(httpClient, cfg.PrometheusAddr), policy),
			ProbeStep(prober, "grafana",
				health.HTTPCheck(httpClient, cfg.GrafanaAddr), policy),
		},
	})

	// Application modules are opaque installers shipped outside this
	// repository. Each is a directory under ModulesDir with an install.sh
	// entry point.
	modules := []struct {
		id          string
		description string
		dependsOn   []string
	}{
		{Auth, "install the authentication module", []string{CoreInfra}},
		{APIGateway, "install the API gateway module", []string{Auth}},
		{Cluster, "install the cluster management module", []string{APIGateway}},
		{DeviceDiscovery, "install the device discovery module", []string{APIGateway}},
		{Monitoring, "install the monitoring module", []string{APIGateway}},
	}
	for _, mod := range modules {
		reg.MustRegister(engine.Component{
			ID:          mod.id,
			Description: mod.description,
			DependsOn:   mod.dependsOn,
			Action: (&ExecAction{
				Name: mod.id,
				Argv: []string{"./install.sh"},
				Dir:  filepath.Join(cfg.ModulesDir, mod.id),
				Env:  []string{"STACKUP_STATE_DIR=" + cfg.StateDir},
			}).WithLogger(alog),
		})
	}

	return reg
}
