// Package merge turns a completed export's manifest into one merged,
// line-delimited output file.
//
// The manifest (index file) lists shard URLs, one per line. Each shard is a
// TSV body whose first line is a header containing "PlayerId". Shards are
// fetched strictly one at a time in manifest order and streamed into the
// sink:
//   - the header of the first shard is written once, later headers dropped
//   - every non-empty data line is written followed by "\n"
//   - a shard whose first line lacks the marker aborts with *IntegrityError
//   - a failed fetch aborts with *fetch.TransferError
//
// Output already written is left in place when a merge aborts.
//
// Blank manifest entries are skipped without a request. A shard with a
// zero-byte body contributes nothing, header included.
package merge
