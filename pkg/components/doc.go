// Package components defines the builtin component catalog for the
// monitoring stack and the action types that install them: external
// command execution and health-probe gating, composed into ordered steps.
package components
