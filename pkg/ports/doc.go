/*
Package ports defines the driven ports (interfaces) of the panel engine.

These interfaces decouple the orchestration core from external
implementations, allowing the engine to work with various model backends and
storage backends.

# Key Interfaces

  - Invoker: Performs one model call (persona + question in, text out).
  - SessionStore: Persists and loads session state (roster, model, transcript).
  - DistributedLocker: Serializes session mutation across multiple instances.
*/
package ports
