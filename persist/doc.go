// Package persist stores analysis artifacts (matrix snapshots, screening
// reports) as checksummed containers in a blob store.
//
// A container is self-describing: its header records the codec and
// compression used to produce the payload, and a CRC32 footer guards
// against storage corruption. Report tables default to LZ4 (fast, the
// tables are small); matrix snapshots default to zstd (dense numeric
// payloads compress well and are written once).
package persist
