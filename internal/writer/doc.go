// Package writer drains routed responses into the bucket sink.
//
// Records are sharded across workers by bucket, so each bucket is appended to
// by one worker in arrival order while distinct buckets are written in parallel.
// A failed append is retried with doubling delay; once attempts run out the
// record is counted as failed and logged with its correlation id.
package writer
