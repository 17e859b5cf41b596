package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

// HTTPCheck probes an HTTP endpoint; any 2xx status means ready.
// Connection failures and non-2xx responses are not-ready, never errors.
// A malformed URL is fatal and surfaces as an error on the first attempt.
func HTTPCheck(client *http.Client, rawURL string) Check {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return func(ctx context.Context) (bool, error) {
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return false, fmt.Errorf("invalid probe URL %q: %w", rawURL, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return false, fmt.Errorf("invalid probe request for %q: %w", rawURL, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			// Refused, reset, or timed out: the service is not up yet.
			return false, nil
		}
		defer resp.Body.Close()
		return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
	}
}

// TCPCheck probes whether a TCP endpoint accepts connections.
func TCPCheck(addr string, timeout time.Duration) Check {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return func(ctx context.Context) (bool, error) {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return false, fmt.Errorf("invalid probe address %q: %w", addr, err)
		}
		dialer := net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false, nil
		}
		_ = conn.Close()
		return true, nil
	}
}

// CommandCheck probes by running a command; exit status zero means ready.
// A non-zero exit is not-ready. A command that cannot be started at all
// (not found, permission denied) is fatal.
func CommandCheck(name string, args ...string) Check {
	return func(ctx context.Context) (bool, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		err := cmd.Run()
		if err == nil {
			return true, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("probe command %q failed to start: %w", name, err)
	}
}

// ContainerRunningCheck probes whether a Docker container reports the
// running state. A missing container is not-ready; a missing docker
// binary is fatal.
func ContainerRunningCheck(container string) Check {
	return func(ctx context.Context) (bool, error) {
		cmd := exec.CommandContext(ctx, "docker", "inspect",
			"--format", "{{.State.Running}}", container)
		out, err := cmd.Output()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// Container does not exist yet.
				return false, nil
			}
			return false, fmt.Errorf("docker inspect failed to start: %w", err)
		}
		return strings.TrimSpace(string(out)) == "true", nil
	}
}

// PostgresReadyCheck probes a PostgreSQL server with pg_isready inside
// the given container.
func PostgresReadyCheck(container, user string) Check {
	return CommandCheck("docker", "exec", container, "pg_isready", "-U", user)
}
