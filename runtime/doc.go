// Package runtime is the host-facing facade over the execution engine.
//
// Lifecycle is expressed as a type-state chain: Load produces a Loaded
// module, Prepare validates it into a Prepared one, Instantiate builds
// a live Instance. Each transition consumes its input; using a consumed
// state is an invalid_state error, so a module cannot be instantiated
// from a form that was never validated.
//
// HostRegistry collects host functions before instantiation, either
// from plain typed Go funcs or from struct hosts whose exported methods
// are registered under kebab-case names. Config carries engine limits
// and loads from TOML.
package runtime
