/*
Package essay wires the essay-writing workflow onto the engine.

The topology is fixed:

	planner -> research_plan -> generate -(policy)-> reflect -> research_critique -> generate
	                                      \-(policy)-> END

Step bodies talk to a ports.Completer and a ports.Searcher injected at
construction time. The revision policy stops after the first draft whose
revision exceeds the configured maximum.
*/
package essay
