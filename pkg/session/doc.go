/*
Package session serializes access to threads.

Writes to one thread must be mutually exclusive so checkpoints stay ordered,
while distinct threads proceed without coordination. The Manager keeps a
reference-counted mutex per thread and, when configured with a
ports.DistributedLocker, also takes a lock shared by every replica.
*/
package session
