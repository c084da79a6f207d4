// Package evaluator is the view-model shared by the terminal and HTTP views.
// It holds the load state of the selected model, runs one generation at a
// time, and accumulates the streamed output. Files by concern:
//
//   - evaluator.go: Evaluator type, constructor, read-only accessors.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: LoadPhase, Session, Snapshot.
//   - errors.go: sentinel errors and helpers.
//   - load.go: Load (idempotent, singleflight per selection) and Select.
//   - generate.go: Generate, display cadence, token budget, failure output.
//   - events.go / broadcast.go / eventpub_memory.go: event publishing.
//   - stats.go: cached memory statistics.
//   - metrics.go: Prometheus collectors.
//
// Views must treat the output as owned by the evaluator: they observe it
// through Snapshot or published events and never write it.
package evaluator
