// Package coordinator provides background synchronization scheduling for
// tracked repositories.
//
// The coordinator separates concerns between:
//
//   - internal/sync: the engine (ref discovery, fan-out, aggregation)
//   - internal/sync/coordinator: scheduling and lifecycle
//   - cmd/pricore/app: server wiring (just starts/stops the coordinator)
//
// On each tick it registers the configured repositories, asks the store for
// repositories due for a sync, and pushes them through the engine one at a
// time. The engine's one-active-run constraint makes a coordinator tick racing
// a webhook trigger harmless.
package coordinator
