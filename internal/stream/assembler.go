package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/angeloszaimis/blobstream/internal/backend"
)

// Assembler yields the trimmed chunks of one plan in ascending order. It is
// single use and not safe for concurrent calls.
type Assembler struct {
	session backend.Session
	key     string
	plan    Plan
	next    int64
	pending []byte
	primed  bool
}

func NewAssembler(session backend.Session, key string, plan Plan) *Assembler {
	return &Assembler{session: session, key: key, plan: plan}
}

// Next fetches the next chunk and returns the part of it that belongs to
// the range. It returns io.EOF once every planned chunk has been yielded.
func (a *Assembler) Next(ctx context.Context) ([]byte, error) {
	if a.primed {
		chunk := a.pending
		a.pending, a.primed = nil, false
		return chunk, nil
	}
	if a.next >= a.plan.ChunkCount {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClientDisconnected, err)
	}

	i := a.next
	offset := a.plan.ChunkOffset(i)
	length := a.plan.FetchLength(i)

	chunk, err := a.session.FetchChunk(ctx, a.key, offset, length)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrClientDisconnected, ctx.Err())
		}
		return nil, &FetchError{Index: i, Offset: offset, Err: err}
	}
	if int64(len(chunk)) < length {
		return nil, &FetchError{
			Index:  i,
			Offset: offset,
			Err:    fmt.Errorf("short read of %d/%d bytes: %w", len(chunk), length, io.ErrUnexpectedEOF),
		}
	}
	a.next++

	start, end := int64(0), length
	if i == 0 {
		start = a.plan.FirstTrim
	}
	if i == a.plan.ChunkCount-1 {
		end = a.plan.LastTrim
	}

	return chunk[start:end], nil
}

// Prefetch fetches the first pending chunk ahead of Next so that a missing
// object or an unreachable backend surfaces before anything is written to
// the client. It is a no-op when a chunk is already held or the plan is done.
func (a *Assembler) Prefetch(ctx context.Context) error {
	if a.primed || a.next >= a.plan.ChunkCount {
		return nil
	}

	chunk, err := a.Next(ctx)
	if err != nil {
		return err
	}
	a.pending, a.primed = chunk, true
	return nil
}

// Fetched reports how many chunks have been fetched so far.
func (a *Assembler) Fetched() int64 {
	return a.next
}
