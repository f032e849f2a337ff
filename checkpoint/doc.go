// Package checkpoint serializes suspended execution state.
//
// A Checkpoint captures everything the engine needs to continue a
// suspended call: the three stack regions, global values, fuel, and the
// suspension location. Encoding is canonical CBOR, so equal checkpoints
// produce equal bytes and a snapshot taken before a process restart
// resumes identically after it. Store persists checkpoints as files
// keyed by id.
package checkpoint
