package quill_test

import (
	"context"
	"fmt"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/pkg/adapters/stub"
)

func Example() {
	eng, err := quill.NewEssayEngine(stub.Completer{}, stub.Searcher{},
		quill.WithThreadIDGenerator(func() string { return "example" }),
	)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	exec := eng.Stream(ctx, "Why the sea is salty", 1)
	for ev, err := range exec.Events() {
		if err != nil {
			panic(err)
		}
		fmt.Printf("[%d] %s\n", ev.StepIndex, ev.Step)
	}

	history, _ := eng.Inspect(ctx, exec.ThreadID())
	fmt.Println("checkpoints:", len(history))
	// Output:
	// [1] planner
	// [2] research_plan
	// [3] generate
	// [4] reflect
	// [5] research_critique
	// [6] generate
	// checkpoints: 7
}

func Example_resume() {
	eng, _ := quill.NewEssayEngine(stub.Completer{}, stub.Searcher{},
		quill.WithThreadIDGenerator(func() string { return "paused" }),
	)
	ctx := context.Background()

	// Stop after the outline is written.
	exec := eng.Stream(ctx, "Why the sea is salty", 0)
	for range exec.Events() {
		break
	}
	fmt.Println("finished:", exec.Finished())

	final, err := eng.Resume(ctx, "paused")
	if err != nil {
		panic(err)
	}
	fmt.Println("revision:", final.RevisionNumber)
	// Output:
	// finished: false
	// revision: 2
}
