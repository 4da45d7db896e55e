/*
Package quill is a checkpointed workflow engine for iterative essay writing.

A run walks a fixed graph of steps (plan, research, draft, critique, research
again, redraft) over a single shared state. After every step the merged
state is persisted as a checkpoint, so a run interrupted by a crash, a
failing collaborator or the caller can be resumed on the same thread and
will follow the same remaining trajectory.

# Concept

Steps are plain functions returning a partial update. The engine merges the
update (content accumulates, every other field is replaced), persists a
checkpoint, then resolves the next step through the edge table. A revision
policy evaluated after each draft decides between another critique round and
the end of the run.

# Usage

	eng, err := quill.NewEssayEngine(completer, searcher,
		quill.WithStore(file.New(".quill/threads")),
	)
	if err != nil {
		log.Fatal(err)
	}

	exec := eng.Stream(ctx, "The role of tides in coastal ecosystems", 2)
	for ev, err := range exec.Events() {
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("[%d] %s", ev.StepIndex, ev.Step)
	}
	fmt.Println(exec.State().Draft)

Breaking out of the loop pauses the thread. Resume(ctx, exec.ThreadID())
picks it up from the last checkpoint, and Inspect returns its full history.
*/
package quill
