// Package wrapper provides ready-made wrappers for instrumenting events.
//
// Every constructor returns a callback.Wrapper that can be added to a chain with
// chain.Add or pushed for a block with chain.With. Wrappers forward the name of the
// callback they wrap, so logs, spans and metrics are keyed by the original callback no
// matter how deep in the chain they sit.
package wrapper
