package workload

import (
	"sync"

	"github.com/angeloszaimis/blobstream/internal/backend"
)

// Entry is one row of a table snapshot.
type Entry struct {
	Handle backend.Handle
	Load   int64
}

// Table maps every backend handle to its current load.
type Table struct {
	mutex sync.RWMutex
	order []backend.Handle
	loads map[backend.Handle]int64
}

// NewTable returns a table with every handle at load zero. Duplicate
// handles are registered once.
func NewTable(handles []backend.Handle) *Table {
	t := &Table{
		order: make([]backend.Handle, 0, len(handles)),
		loads: make(map[backend.Handle]int64, len(handles)),
	}

	for _, h := range handles {
		if _, ok := t.loads[h]; ok {
			continue
		}
		t.order = append(t.order, h)
		t.loads[h] = 0
	}

	return t
}

// RecordUse increments the load of h. Unknown handles are ignored.
func (t *Table) RecordUse(h backend.Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.loads[h]; ok {
		t.loads[h]++
	}
}

// Release decrements the load of h, never going below zero.
func (t *Table) Release(h backend.Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if n, ok := t.loads[h]; ok && n > 0 {
		t.loads[h] = n - 1
	}
}

func (t *Table) Load(h backend.Handle) int64 {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.loads[h]
}

// Snapshot returns every handle with its load, in registration order.
func (t *Table) Snapshot() []Entry {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	entries := make([]Entry, len(t.order))
	for i, h := range t.order {
		entries[i] = Entry{Handle: h, Load: t.loads[h]}
	}

	return entries
}

func (t *Table) Handles() []backend.Handle {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return append([]backend.Handle(nil), t.order...)
}

func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.order)
}
