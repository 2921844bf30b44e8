// Package sink opens the destination for the merged export.
//
// A target is either a local file path or a bucket URL understood by
// gocloud.dev/blob:
//
//	players.tsv
//	/var/exports/players.tsv
//	file:///var/exports/players.tsv
//	s3://my-bucket/exports/players.tsv?region=us-east-1
//	gs://my-bucket/exports/players.tsv
//
// Writes are buffered. Close flushes and commits whatever was written, so a
// run that fails part way leaves its partial output in place.
package sink
