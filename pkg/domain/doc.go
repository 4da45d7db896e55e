/*
Package domain contains the core domain models of the Quill workflow engine.

It defines the State Container that flows through the graph, the partial Update
each step returns, the enumerated set of step identifiers, the tagged Route a
conditional edge resolves to, and the Checkpoint snapshots persisted after
every step. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - State: the seven-field snapshot of an essay run (task, plan, draft, critique, content, counters).
  - Update: a partial state returned by a step. Absent fields are left untouched by Merge.
  - StepID: the closed set of workflow steps plus the End sentinel.
  - Route: the result of a conditional edge, either Continue(step) or Terminate().
  - Checkpoint: a thread-scoped, step-indexed snapshot of State.
*/
package domain
