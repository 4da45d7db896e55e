package dsl

import (
	"fmt"
	"slices"

	"github.com/aretw0/quill/pkg/domain"
)

// Validate checks the declared edges against the registry and returns the
// compiled graph. Every problem found is reported in a single
// *domain.GraphIntegrityError.
func (b *Builder) Validate() (*Graph, error) {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	known := func(id domain.StepID) bool {
		return b.reg != nil && b.reg.Has(id)
	}

	if b.reg == nil {
		report("no step registry")
	}

	switch {
	case b.entry == "":
		report("entry point is not set")
	case !known(b.entry):
		report("entry point %q has no registered step", b.entry)
	}

	g := &Graph{
		reg:         b.reg,
		entry:       b.entry,
		transitions: make(map[domain.StepID]transition, len(b.sources)),
	}

	for _, from := range b.sources {
		edges := b.edges[from]
		conds := b.conds[from]

		if !known(from) {
			report("edge source %q has no registered step", from)
		}
		for _, to := range edges {
			if to != domain.End && !known(to) {
				report("edge %s -> %s: target has no registered step", from, to)
			}
		}
		for _, c := range conds {
			if c.pred == nil {
				report("conditional edge from %q has no predicate", from)
			}
			if len(c.routes) == 0 {
				report("conditional edge from %q has an empty routing table", from)
			}
			for _, to := range c.routes {
				if to != domain.End && !known(to) {
					report("conditional edge %s -> %s: target has no registered step", from, to)
				}
			}
		}

		switch {
		case len(edges) > 0 && len(conds) > 0:
			report("step %q has both conditional and unconditional outgoing edges", from)
		case len(conds) > 1:
			report("step %q has %d conditional outgoing edges, at most one is allowed", from, len(conds))
		case len(edges) > 1:
			report("step %q has %d unconditional outgoing edges, at most one is allowed", from, len(edges))
		case len(conds) == 1:
			g.transitions[from] = transition{pred: conds[0].pred, routes: slices.Clone(conds[0].routes)}
		case len(edges) == 1:
			g.transitions[from] = transition{to: edges[0]}
		}
	}

	if known(b.entry) {
		reached := b.reachable()
		for _, id := range b.reg.IDs() {
			if !reached[id] {
				report("step %q is unreachable from entry point %q", id, b.entry)
			}
		}
	}

	if len(problems) > 0 {
		return nil, &domain.GraphIntegrityError{Problems: problems}
	}
	return g, nil
}

// reachable walks every declared edge and routing table from the entry point.
func (b *Builder) reachable() map[domain.StepID]bool {
	visited := make(map[domain.StepID]bool)
	queue := []domain.StepID{b.entry}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == domain.End || visited[current] {
			continue
		}
		visited[current] = true

		queue = append(queue, b.edges[current]...)
		for _, c := range b.conds[current] {
			queue = append(queue, c.routes...)
		}
	}
	return visited
}
