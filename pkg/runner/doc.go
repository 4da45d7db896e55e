/*
Package runner drives a run's event stream to a progress handler.

The Runner consumes the events of an execution and forwards each one to a
Handler. Two handlers ship with the package: TextHandler for people and
JSONHandler for machines (one JSON object per line).

# Usage

	exec := eng.Stream(ctx, threadID, task, 2)
	r := runner.NewRunner(runner.WithHandler(runner.NewTextHandler(os.Stdout)))
	final, err := r.Run(ctx, exec)

Stopping the consumer early (a canceled context or an OS signal through
SignalManager) pauses the run. It can be picked up again with Resume.
*/
package runner
