/*
Package domain contains the core domain models of the panel engine.

It defines the entities shared by the registry, the orchestration runtime and
the adapters. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Expert: A persona (id, description, display metadata) consulted by the panel.
  - ModelConfig: Model name and temperature used for one invocation.
  - OpinionResult: One expert's answer, or the marker of its failure.
  - PanelResponse: The synthesized text plus the ordered opinions behind it.
  - SessionState: The persisted roster, model parameters and transcript of a chat.
  - Hooks: Observability callbacks fired while a request runs.
*/
package domain
