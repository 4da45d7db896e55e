package essay

import (
	"fmt"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/dsl"
	"github.com/aretw0/quill/pkg/ports"
	"github.com/aretw0/quill/pkg/registry"
)

// Option configures the step bodies.
type Option func(*Steps)

// WithMaxQueries bounds the search queries per research step.
func WithMaxQueries(n int) Option {
	return func(s *Steps) {
		if n > 0 {
			s.maxQueries = n
		}
	}
}

// WithResultsPerQuery bounds the snippets kept per query.
func WithResultsPerQuery(n int) Option {
	return func(s *Steps) {
		if n > 0 {
			s.resultsPerQuery = n
		}
	}
}

// Register adds the five essay steps to reg with their write sets.
func (s *Steps) Register(reg *registry.Registry) error {
	steps := []struct {
		id     domain.StepID
		writes domain.FieldSet
		fn     registry.StepFunc
	}{
		{domain.StepPlanner, domain.Fields(domain.FieldPlan), s.Plan},
		{domain.StepResearchPlan, domain.Fields(domain.FieldContent), s.ResearchPlan},
		{domain.StepGenerate, domain.Fields(domain.FieldDraft, domain.FieldRevisionNumber), s.Generate},
		{domain.StepReflect, domain.Fields(domain.FieldCritique), s.Reflect},
		{domain.StepResearchCritique, domain.Fields(domain.FieldContent), s.ResearchCritique},
	}
	for _, st := range steps {
		if err := reg.Register(st.id, st.writes, st.fn); err != nil {
			return err
		}
	}
	return nil
}

// BuildGraph registers the steps and validates the essay topology.
func BuildGraph(completer ports.Completer, searcher ports.Searcher, opts ...Option) (*dsl.Graph, error) {
	reg := registry.NewRegistry()
	if err := NewSteps(completer, searcher, opts...).Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register essay steps: %w", err)
	}

	b := dsl.New(reg).SetEntryPoint(domain.StepPlanner)
	b.From(domain.StepPlanner).Go(domain.StepResearchPlan)
	b.From(domain.StepResearchPlan).Go(domain.StepGenerate)
	b.From(domain.StepGenerate).Branch(ShouldContinue,
		domain.Continue(domain.StepReflect),
		domain.Terminate(),
	)
	b.From(domain.StepReflect).Go(domain.StepResearchCritique)
	b.From(domain.StepResearchCritique).Go(domain.StepGenerate)

	return b.Validate()
}
