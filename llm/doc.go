// Package llm provides a provider-neutral layer for calling Large Language Model APIs.
//
// This package defines the types, interfaces and errors shared by the provider adapters
// (hosted platform, OpenAI, Anthropic, Ollama) so that callers never depend on any one
// provider's wire format.
//
// # Core Concepts
//
//  1. Turns: a Turn is one conversation message with a role (user, assistant, system),
//     text content and optional attachment Fragments rendered into the prompt.
//
//  2. Profiles: a ModelProfile holds the provider, credentials, endpoint and sampling
//     parameters for one named model. The Registry maps names to profiles and tracks
//     a default model. Credentials are validated lazily, on Resolve.
//
//  3. Adapter Interface: an Adapter turns a Request (history, new turn, system prompt)
//     into one HTTP call and parses the reply into a Result.
//
//  4. Middleware: Middleware hooks wrap an Adapter for cross-cutting concerns such as
//     logging without touching provider code.
//
//  5. Errors: the Error type classifies failures as configuration, validation,
//     not-found, network (including timeouts) or provider errors. Provider errors carry
//     the status code and a truncated, credential-scrubbed response body.
//
// Usage Example
//
//	registry := llm.NewRegistry()
//	registry.Register("gpt", llm.NewModelProfile(llm.ProviderOpenAI, "gpt-4o",
//	    llm.WithAPIKey(key)))
//
//	profile, err := registry.Resolve("gpt")
//	adapter, err := openai.NewAdapter(profile, openai.Options{})
//
//	res, err := adapter.Send(ctx, &llm.Request{
//	    Message: llm.NewTurn(llm.RoleUser, "Hello!"),
//	})
//
// # Extension Points
//
// To add a new provider:
//  1. Add a Provider tag and its credential rules in ModelProfile.Validate
//  2. Implement the Adapter interface in a subpackage
//  3. Translate transport and status failures into llm.Error values
//  4. Register a constructor in the config package's adapter factory
package llm
