// Package engine implements the core bring-up machinery: the component
// registry with topological plan resolution, the sequential installer
// (Sequencer), the installed-state store abstraction, and the classified
// error type shared across the project.
//
// The flow is Registry.Resolve over a requested component set, producing
// a Plan whose order respects every dependency edge with registration
// order as the deterministic tie-break, followed by Sequencer.Run which
// executes each component's action in order, skipping components whose
// installed marker exists unless forced, and aborting at the first
// failure. Markers persisted before a failure are left intact, so
// re-running resumes at the failed component.
package engine
