/*
Package panel is an expert-panel chat engine: a question is broadcast to
several independently prompted LLM personas ("experts") and their answers are
merged by a second model call into one synthesized response.

# Concept

The engine is a fan-out / fan-in protocol. Every registered expert is asked
concurrently; the engine waits for all of them (a slow or failing expert
never blocks or fails the others), then renders the opinions in registration
order and hands them to a moderator call that writes the conclusion.

The core is decoupled from its collaborators (Hexagonal Architecture):

  - ports.Invoker performs the model calls (OpenAI-compatible HTTP, or the offline echo adapter).
  - registry.Registry holds the roster; asks run against an immutable snapshot of it.
  - ports.SessionStore persists sessions (memory, file, Redis, SQLite).

# Usage

	reg := registry.NewDefault()
	eng, err := panel.New(openai.New(apiKey))
	if err != nil {
		log.Fatal(err)
	}

	resp, err := eng.Ask(ctx, reg, "Should we rewrite the billing service?", domain.DefaultModelConfig())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(resp.FinalText)

Failures of individual experts are not errors: they are marked on the
corresponding domain.OpinionResult and rendered as placeholders in the
synthesis prompt. Ask fails only for an empty question, an empty panel,
an invalid model configuration, cancellation, or a failed synthesis call
(*domain.InvokerError).

# Observability

Lifecycle hooks (domain.Hooks) report each opinion as it completes, the
start of synthesis, and the final response. pkg/observability turns them
into Prometheus metrics; the HTTP adapter turns them into SSE events.
*/
package panel
