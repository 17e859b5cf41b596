package engine

import (
	"fmt"
	"strings"
)

// Registry is the static component table: ID to action, declared
// dependencies, and registration order. Dependencies must be registered
// before their dependents, so the graph is acyclic by construction;
// Resolve still detects cycles defensively.
//
// Registry is not safe for concurrent mutation. Populate it during
// startup, then treat it as read-only.
type Registry struct {
	components map[string]*Component

	// order preserves registration order. It is the topological tie-break:
	// when several components are simultaneously eligible, the one
	// registered first runs first, keeping plans reproducible.
	order []string
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]*Component),
	}
}

// Register adds a component to the registry. The component ID must be
// unique and every dependency must already be registered.
func (r *Registry) Register(c Component) error {
	if c.ID == "" {
		return NewError(KindUnknownComponent, "component has empty ID", nil)
	}
	if c.Action == nil {
		return NewError(KindActionFailure, "component has nil action", nil).
			WithComponent(c.ID)
	}
	if _, exists := r.components[c.ID]; exists {
		return NewError(KindDuplicateComponent,
			fmt.Sprintf("component %q already registered", c.ID), nil).
			WithComponent(c.ID)
	}
	for _, dep := range c.DependsOn {
		if dep == c.ID {
			return NewError(KindCyclicDependency,
				fmt.Sprintf("component %q depends on itself", c.ID), nil).
				WithComponent(c.ID)
		}
		if _, exists := r.components[dep]; !exists {
			return NewError(KindUnknownDependency,
				fmt.Sprintf("component %q depends on unregistered %q", c.ID, dep), nil).
				WithComponent(c.ID)
		}
	}

	stored := c
	r.components[c.ID] = &stored
	r.order = append(r.order, c.ID)
	return nil
}

// MustRegister registers a component and panics on error. Intended for the
// builtin catalog, where a registration failure is a programming error.
func (r *Registry) MustRegister(c Component) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Get returns the component with the given ID.
func (r *Registry) Get(id string) (*Component, bool) {
	c, ok := r.components[id]
	return c, ok
}

// IDs returns all registered component IDs in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	return len(r.order)
}

// Resolve computes the execution plan for the requested component IDs:
// the transitive closure of their dependencies, topologically sorted with
// registration order as tie-break. Each component appears exactly once.
func (r *Registry) Resolve(requested []string) (Plan, error) {
	// Collect the transitive closure of the requested set.
	wanted := make(map[string]bool)
	stack := make([]string, 0, len(requested))
	for _, id := range requested {
		if _, ok := r.components[id]; !ok {
			return Plan{}, NewError(KindUnknownComponent,
				fmt.Sprintf("unknown component %q", id), nil).
				WithComponent(id)
		}
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if wanted[id] {
			continue
		}
		wanted[id] = true
		stack = append(stack, r.components[id].DependsOn...)
	}

	// Kahn's algorithm over the closure. Iterating r.order at every step
	// gives the registration-order tie-break without a priority queue; the
	// registry is small enough that the quadratic scan does not matter.
	inDegree := make(map[string]int, len(wanted))
	for id := range wanted {
		for _, dep := range r.components[id].DependsOn {
			if wanted[dep] {
				inDegree[id]++
			}
		}
	}

	plan := make([]string, 0, len(wanted))
	placed := make(map[string]bool, len(wanted))
	for len(plan) < len(wanted) {
		progressed := false
		for _, id := range r.order {
			if !wanted[id] || placed[id] || inDegree[id] > 0 {
				continue
			}
			plan = append(plan, id)
			placed[id] = true
			progressed = true
			for other := range wanted {
				if placed[other] {
					continue
				}
				for _, dep := range r.components[other].DependsOn {
					if dep == id {
						inDegree[other]--
					}
				}
			}
		}
		if !progressed {
			return Plan{}, NewError(KindCyclicDependency,
				fmt.Sprintf("cyclic dependency among: %s", formatResidue(wanted, placed)), nil)
		}
	}

	return Plan{Components: plan}, nil
}

// formatResidue lists the components left unplaced when Kahn's algorithm
// stalls, i.e. the members of the cycle.
func formatResidue(wanted, placed map[string]bool) string {
	var residue []string
	for id := range wanted {
		if !placed[id] {
			residue = append(residue, id)
		}
	}
	return strings.Join(residue, ", ")
}
