/*
Package dsl provides a Go DSL for declaring the edge table of a workflow graph.

Edges connect registered steps. A step has at most one outgoing rule: either a
single unconditional edge or a single conditional edge whose predicate picks a
target from a declared routing table. A step with no outgoing rule ends the run.

Validation happens once, in Validate, and produces an immutable Graph that the
scheduler consults at run time.

Example usage:

	reg := registry.NewRegistry()
	reg.MustRegister(domain.StepPlanner, domain.Fields(domain.FieldPlan), plan)
	reg.MustRegister(domain.StepGenerate, domain.Fields(domain.FieldDraft, domain.FieldRevisionNumber), generate)
	reg.MustRegister(domain.StepReflect, domain.Fields(domain.FieldCritique), reflect)

	b := dsl.New(reg)
	b.SetEntryPoint(domain.StepPlanner)
	b.From(domain.StepPlanner).Go(domain.StepGenerate)
	b.From(domain.StepGenerate).Branch(shouldContinue,
		domain.Continue(domain.StepReflect),
		domain.Terminate(),
	)
	b.From(domain.StepReflect).Go(domain.StepGenerate)

	graph, err := b.Validate()
*/
package dsl
