package essay

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/ports"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxQueries      = 3
	DefaultResultsPerQuery = 2
)

// Queries is the structured completion returned by the research steps.
type Queries struct {
	Queries []string `json:"queries"`
}

// QuerySchema describes Queries for structured completion.
func QuerySchema(maxQueries int) ports.Schema {
	return ports.Schema{
		Name: "queries",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"queries": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"maxItems": maxQueries,
				},
			},
			"required":             []string{"queries"},
			"additionalProperties": false,
		},
	}
}

// Steps holds the step bodies and their collaborators.
type Steps struct {
	completer       ports.Completer
	searcher        ports.Searcher
	maxQueries      int
	resultsPerQuery int
}

// NewSteps creates the step bodies.
func NewSteps(completer ports.Completer, searcher ports.Searcher, opts ...Option) *Steps {
	s := &Steps{
		completer:       completer,
		searcher:        searcher,
		maxQueries:      DefaultMaxQueries,
		resultsPerQuery: DefaultResultsPerQuery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan writes the outline.
func (s *Steps) Plan(ctx context.Context, state domain.State) (domain.Update, error) {
	plan, err := s.completer.Complete(ctx, PlanPrompt, state.Task)
	if err != nil {
		return domain.Update{}, fmt.Errorf("plan: %w", err)
	}
	return domain.Update{Plan: domain.Ptr(plan)}, nil
}

// ResearchPlan searches for material about the task.
func (s *Steps) ResearchPlan(ctx context.Context, state domain.State) (domain.Update, error) {
	snippets, err := s.research(ctx, fmt.Sprintf(ResearchPlanPrompt, s.maxQueries), state.Task)
	if err != nil {
		return domain.Update{}, fmt.Errorf("research plan: %w", err)
	}
	return domain.Update{Content: snippets}, nil
}

// Generate writes a draft and advances the revision counter.
func (s *Steps) Generate(ctx context.Context, state domain.State) (domain.Update, error) {
	user := state.Task + "\n\nHere is my plan:\n\n" + state.Plan
	if state.Critique != "" {
		user += "\n\nHere is the critique of my previous draft:\n\n" + state.Critique +
			"\n\nPrevious draft:\n\n" + state.Draft
	}
	system := fmt.Sprintf(WriterPrompt, strings.Join(state.Content, "\n\n"))

	draft, err := s.completer.Complete(ctx, system, user)
	if err != nil {
		return domain.Update{}, fmt.Errorf("generate: %w", err)
	}
	return domain.Update{
		Draft:          domain.Ptr(draft),
		RevisionNumber: domain.Ptr(state.RevisionNumber + 1),
	}, nil
}

// Reflect critiques the latest draft.
func (s *Steps) Reflect(ctx context.Context, state domain.State) (domain.Update, error) {
	critique, err := s.completer.Complete(ctx, ReflectionPrompt, state.Draft)
	if err != nil {
		return domain.Update{}, fmt.Errorf("reflect: %w", err)
	}
	return domain.Update{Critique: domain.Ptr(critique)}, nil
}

// ResearchCritique searches for material addressing the critique.
func (s *Steps) ResearchCritique(ctx context.Context, state domain.State) (domain.Update, error) {
	snippets, err := s.research(ctx, fmt.Sprintf(ResearchCritiquePrompt, s.maxQueries), state.Critique)
	if err != nil {
		return domain.Update{}, fmt.Errorf("research critique: %w", err)
	}
	return domain.Update{Content: snippets}, nil
}

// research asks for queries and runs them concurrently. Snippets keep query order.
func (s *Steps) research(ctx context.Context, system, user string) ([]string, error) {
	var q Queries
	if err := s.completer.CompleteStructured(ctx, system, user, QuerySchema(s.maxQueries), &q); err != nil {
		return nil, err
	}

	queries := q.Queries
	if len(queries) > s.maxQueries {
		queries = queries[:s.maxQueries]
	}

	results := make([][]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			snippets, err := s.searcher.Search(gctx, query, s.resultsPerQuery)
			if err != nil {
				return fmt.Errorf("search %q: %w", query, err)
			}
			if len(snippets) > s.resultsPerQuery {
				snippets = snippets[:s.resultsPerQuery]
			}
			results[i] = snippets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
