// Package report renders e-graphs, runs and rule sets as a sealed value
// model with a canonical JSON encoding.
//
// Values are built from String, Int, Bool, Array and Object only. There is
// no float and no null: durations are reported in whole microseconds and
// absent fields are omitted. Marshal follows RFC 8785 (keys ordered by
// UTF-16 code units, no HTML escaping, NFC-normalized strings), so equal
// reports always encode to equal bytes and Digest gives them a stable
// content id.
//
// This package sits below store, harness and cli; it imports the engine
// packages but nothing that imports it.
package report
