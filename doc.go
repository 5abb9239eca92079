// Package protocol implements a schema-driven JSON-to-typed-object binder.
//
// Callers declare one schema descriptor per wire-protocol object type
// (fields, optionality, nullability, load strategy, subtyping), submit them
// as a batch to a Session, and get back a HandlerSet: a compiled network of
// type handlers that a Decoder can run against raw JSON values to produce
// typed, immutable views.
//
// The build phase (Session.Build) is single-threaded and one-shot. The
// parse phase (Decoder.Parse / Decoder.ParseAny) is safe for concurrent use
// across disjoint values; see ObjectData for the per-value concurrency
// contract.
package protocol
