// Package backend describes the pool of equivalent upstream connections and
// the per-connection streaming session used to fetch byte ranges of stored
// objects.
//
// A Handle names one pool member. A Session is the heavyweight, reusable
// state bound to a handle; the gocloud.dev/blob implementation keeps one
// opened bucket per handle and serves each chunk with a ranged read:
//
//	sess, err := backend.OpenBlob(ctx, backend.Handle{Name: "a", URL: "s3://media"})
//	chunk, err := sess.FetchChunk(ctx, "movies/intro.mkv", 0, 1<<20)
//
// Sessions are safe for concurrent use, so requests sharing a handle may
// interleave their fetches.
package backend
