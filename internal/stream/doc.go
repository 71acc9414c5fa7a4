// Package stream turns a byte range of a remote object into a sequence of
// chunk fetches and writes the trimmed result to a client.
//
// The pipeline for one response is:
//
//	r, partial, err := stream.ParseRange(req.Header.Get("Range"), size)
//	plan, err := stream.NewPlan(r, size, chunkSize)
//	a := stream.NewAssembler(session, key, plan)
//	n, err := stream.Pump(ctx, w, a)
//
// Fetches are aligned to the chunk size. The first and last chunks are
// trimmed so the client receives exactly the requested bytes. The assembler
// is pull based: the next chunk is fetched only after the previous one has
// been written, so a slow client slows the backend reads down with it and
// a gone client stops them.
package stream
