// Package persistence holds the snapshot codecs shared by the durable
// checkpoint stores, and (in middleware) decorators for any ports.CheckpointStore.
package persistence
