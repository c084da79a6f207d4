// Package engine is the boundary between llmeval and the native inference
// library. Model loading, tokenization and decoding all happen on the other
// side of this boundary; the package only defines the shapes llmeval needs:
//
//   - Loader: fetch and initialize a model for a catalog configuration,
//     reporting fractional progress, returning an opaque *Container.
//   - Container.Perform: serialized access to the ModelContext bundle
//     (model, tokenizer, input processor).
//   - Generate: the streaming generate primitive. It calls back with the
//     token buffer after every token; the callback answers Continue or Stop.
//   - Accelerator: cache limit, cache clearing and memory statistics.
//
// Backends:
//
//   - In-process llama (go-llama.cpp). Enabled with `-tags=llama`.
//     Files: llama.go, llama_cgo.go. Without the tag llama_stub.go fails
//     every load with a dependency-unavailable error.
//   - llama-server (OpenAI-compatible HTTP). Either an already running
//     server (URL) or one spawned per model from a binary. Files: server.go,
//     server_spawn.go.
package engine
