// Package luatable implements the codec for KOReader sidecar files.
//
// A sidecar is a Lua source file consisting of a short preamble (comments
// and a return statement) followed by a single table literal. This package
// decodes that literal into a dynamically typed Value tree and encodes a
// tree back into a form KOReader itself can load.
//
// # Key types matter
//
// Lua tables mix integer keys (arrays) and string keys (records) in one
// structure, and the sidecar format relies on the distinction. The codec
// preserves key types across decode/encode. Values that travelled through a
// JSON intermediate (which can only express string keys) come back with
// digit-string keys; the encoder coerces those back to integer keys before
// emission, so the round trip stays lossless for array-shaped tables.
//
// # Components
//
//   - Value / Table: the tagged variant tree (nil, bool, int, float, string, table).
//   - Decode: recursive-descent parser for the table grammar.
//   - Encode: deterministic emitter with the fixed sidecar preamble.
//   - ToJSON / FromJSON: the JSON bridge used to store a sidecar in a
//     long-text library column and restore it later.
package luatable
