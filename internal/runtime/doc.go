// Package runtime implements the execution scheduler: it drives a validated
// graph from a thread's latest checkpoint to the terminal sentinel, merging
// every step's output and checkpointing after each step.
package runtime
