// Package router owns the active-module state machine of the shell: it
// consults the permission gate, swaps the content region between loading,
// fragment and error surfaces, and loads fragments asynchronously.
//
// # States
//
//	Idle -> Loading(m) -> Loaded(m) | Failed(m, err)
//
// Any state accepts a new Navigate. Each Navigate takes a new generation and
// cancels the previous retrieval; a completion carrying an older generation
// is discarded, so a slow response can never overwrite a newer module.
//
// # Architecture boundaries
//
// Completions are posted back through an [Executor] (the shell's event loop)
// so the router's state is only ever touched from one goroutine. The router
// does not retry failed retrievals.
package router
