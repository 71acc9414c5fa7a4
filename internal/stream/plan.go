package stream

import "fmt"

// Plan lays a byte range out over fixed size chunks.
type Plan struct {
	Range
	Size          int64
	ChunkSize     int64
	AlignedOffset int64
	FirstTrim     int64
	LastTrim      int64
	ChunkCount    int64
}

// NewPlan computes the chunk layout for r. Until is clamped to the last
// byte of the file.
func NewPlan(r Range, size, chunkSize int64) (Plan, error) {
	if chunkSize <= 0 {
		return Plan{}, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	r.Until = min(r.Until, size-1)

	p := Plan{Range: r, Size: size, ChunkSize: chunkSize}
	if r.Length() <= 0 {
		return p, nil
	}
	if r.From < 0 || r.From >= size {
		return Plan{}, ErrRangeNotSatisfiable
	}

	p.AlignedOffset = r.From - r.From%chunkSize
	p.FirstTrim = r.From - p.AlignedOffset
	p.LastTrim = r.Until%chunkSize + 1
	p.ChunkCount = (r.Until+chunkSize)/chunkSize - p.AlignedOffset/chunkSize

	return p, nil
}

// ChunkOffset returns the absolute offset of chunk i.
func (p Plan) ChunkOffset(i int64) int64 {
	return p.AlignedOffset + i*p.ChunkSize
}

// FetchLength returns how many bytes to request for chunk i. Only the
// final chunk of the file can be shorter than the chunk size.
func (p Plan) FetchLength(i int64) int64 {
	return min(p.ChunkSize, p.Size-p.ChunkOffset(i))
}
