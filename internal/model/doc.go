// Package model defines shared data types used across the replay pipeline.
//
// Conventions:
//   - Sequence ids: int64, strictly increasing within a run, never reused across runs
//     that use distinct base offsets
//   - Resource ids: opaque strings as they appear in the id/name store
//   - Response bodies: raw JSON, never re-encoded between router and sink
package model
