package dsl

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/registry"
)

type transition struct {
	to     domain.StepID
	pred   Predicate
	routes []domain.StepID
}

// Graph is a validated, immutable workflow graph.
type Graph struct {
	reg         *registry.Registry
	entry       domain.StepID
	transitions map[domain.StepID]transition
}

// Entry returns the step every new run starts at.
func (g *Graph) Entry() domain.StepID {
	return g.entry
}

// Registry returns the step registry the graph was validated against.
func (g *Graph) Registry() *registry.Registry {
	return g.reg
}

// Steps returns the registered steps, sorted.
func (g *Graph) Steps() []domain.StepID {
	return g.reg.IDs()
}

// Next resolves the outgoing edge of from against the merged state.
//
// Unconditional edges are a direct lookup. Conditional edges evaluate their
// predicate, whose result must belong to the declared routing table. A step
// without an outgoing edge terminates the run.
func (g *Graph) Next(from domain.StepID, state domain.State) (domain.Route, error) {
	t, ok := g.transitions[from]
	if !ok {
		return domain.Terminate(), nil
	}
	if t.pred == nil {
		return domain.Continue(t.to), nil
	}

	route := t.pred(state.Clone())
	if !slices.Contains(t.routes, route.Step()) {
		return domain.Route{}, fmt.Errorf("%w: %s -> %s", domain.ErrUndeclaredRoute, from, route)
	}
	return route, nil
}

// Edge describes one possible transition, for display.
type Edge struct {
	From        domain.StepID `json:"from"`
	To          domain.StepID `json:"to"`
	Conditional bool          `json:"conditional,omitempty"`
}

// Edges lists every possible transition, ordered by source then target.
// Conditional edges contribute one entry per routing table target.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for from, t := range g.transitions {
		if t.pred == nil {
			out = append(out, Edge{From: from, To: t.to})
			continue
		}
		for _, to := range t.routes {
			out = append(out, Edge{From: from, To: to, Conditional: true})
		}
	}
	slices.SortFunc(out, func(a, b Edge) int {
		if a.From != b.From {
			return cmp.Compare(a.From, b.From)
		}
		return cmp.Compare(a.To, b.To)
	})
	return out
}
