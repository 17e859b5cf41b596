// Package health implements fixed-interval readiness probing with an
// attempt budget, plus ready-made checks for HTTP endpoints, TCP ports,
// commands, and Docker containers.
package health
