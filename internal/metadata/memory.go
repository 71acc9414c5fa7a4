package metadata

import (
	"context"
	"sync"
)

type MemoryResolver struct {
	mutex sync.RWMutex
	files map[string]FileDescriptor
}

func NewMemoryResolver(files ...FileDescriptor) *MemoryResolver {
	r := &MemoryResolver{files: make(map[string]FileDescriptor, len(files))}
	for _, f := range files {
		r.files[f.ID] = f
	}
	return r
}

func (r *MemoryResolver) Put(f FileDescriptor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.files[f.ID] = f
}

func (r *MemoryResolver) Resolve(_ context.Context, id string) (FileDescriptor, error) {
	if id == "" {
		return FileDescriptor{}, ErrInvalidIdentifier
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	f, ok := r.files[id]
	if !ok {
		return FileDescriptor{}, ErrNotFound
	}
	return f, nil
}
