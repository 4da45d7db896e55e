/*
Package http serves the engine over HTTP.

	POST   /threads                    start a run    {"task": "...", "max_revisions": 2}
	POST   /threads/{id}/resume        resume a run
	GET    /threads                    list threads
	GET    /threads/{id}/checkpoints   revision history
	GET    /threads/{id}/events        server-sent events of runs on the thread
	DELETE /threads/{id}               delete a thread
	GET    /graph                      compiled workflow

Add ?stream=1 to the run endpoints to receive one JSON line per step.
Unknown threads answer 404 and failed steps 502.
*/
package http
