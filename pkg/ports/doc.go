/*
Package ports defines the driven ports (interfaces) for the Quill engine.

These interfaces decouple the execution core from external implementations,
allowing the engine to work with various storage backends and to substitute
its language-model and search collaborators in tests.

# Key Interfaces

  - CheckpointStore: Durable, thread-scoped, step-indexed log of state snapshots.
  - DistributedLocker: Provides distributed locking for handling concurrent thread access.
  - Completer: Language-model completion service used by step bodies.
  - Searcher: Web search service returning ranked text snippets.
*/
package ports
