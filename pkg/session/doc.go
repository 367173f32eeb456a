/*
Package session implements chat session management and persistence orchestration.

A session owns an expert roster, the model parameters and a transcript. The
Manager serializes mutations per session ID (optionally across replicas with a
ports.DistributedLocker) while letting panel requests run outside the lock on
an immutable snapshot of the roster.
*/
package session
