package dsl

import (
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/registry"
)

// Predicate inspects the merged state and picks the next route.
type Predicate func(domain.State) domain.Route

type conditional struct {
	pred   Predicate
	routes []domain.StepID
}

// Builder manages the graph construction.
// It records edges as declared; all checks are deferred to Validate.
type Builder struct {
	reg   *registry.Registry
	entry domain.StepID

	sources []domain.StepID // declaration order
	edges   map[domain.StepID][]domain.StepID
	conds   map[domain.StepID][]conditional
}

// New creates a new graph builder over the steps of reg.
func New(reg *registry.Registry) *Builder {
	return &Builder{
		reg:   reg,
		edges: make(map[domain.StepID][]domain.StepID),
		conds: make(map[domain.StepID][]conditional),
	}
}

// SetEntryPoint sets the step every new run starts at.
func (b *Builder) SetEntryPoint(id domain.StepID) *Builder {
	b.entry = id
	return b
}

// AddEdge adds an unconditional transition.
func (b *Builder) AddEdge(from, to domain.StepID) *Builder {
	b.touch(from)
	b.edges[from] = append(b.edges[from], to)
	return b
}

// AddConditionalEdge adds a transition resolved by pred at run time.
// routes is the closed set of targets pred may return.
func (b *Builder) AddConditionalEdge(from domain.StepID, pred Predicate, routes ...domain.Route) *Builder {
	b.touch(from)
	targets := make([]domain.StepID, 0, len(routes))
	for _, r := range routes {
		targets = append(targets, r.Step())
	}
	b.conds[from] = append(b.conds[from], conditional{pred: pred, routes: targets})
	return b
}

// From starts a fluent edge declaration for the given source step.
func (b *Builder) From(id domain.StepID) *EdgeBuilder {
	return &EdgeBuilder{from: id, builder: b}
}

func (b *Builder) touch(from domain.StepID) {
	if _, ok := b.edges[from]; ok {
		return
	}
	if _, ok := b.conds[from]; ok {
		return
	}
	b.sources = append(b.sources, from)
}

// EdgeBuilder provides a fluent API for configuring the outgoing edge of a step.
type EdgeBuilder struct {
	from    domain.StepID
	builder *Builder
}

// Go adds an unconditional transition to the target step.
func (e *EdgeBuilder) Go(target domain.StepID) *Builder {
	return e.builder.AddEdge(e.from, target)
}

// Branch adds a conditional transition with its routing table.
func (e *EdgeBuilder) Branch(pred Predicate, routes ...domain.Route) *Builder {
	return e.builder.AddConditionalEdge(e.from, pred, routes...)
}

// Terminal ends the run after the step. It is equivalent to Go(domain.End).
func (e *EdgeBuilder) Terminal() *Builder {
	return e.builder.AddEdge(e.from, domain.End)
}
