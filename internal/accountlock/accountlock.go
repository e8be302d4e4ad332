// Package accountlock serializes balance mutations per account.
//
// Locks for several accounts are always taken in ascending id order, so two
// operations touching the same pair of accounts cannot deadlock whatever
// role each account plays in them.
package accountlock

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Table hands out exclusive per-account locks.
// Entries are dropped once nobody holds or waits for them.
type Table struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

// New returns an empty lock table.
func New() *Table {
	return &Table{locks: make(map[uuid.UUID]*entry)}
}

// Less reports whether a precedes b in the canonical lock order.
func Less(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// Ordered returns the distinct ids sorted in the canonical lock order.
func Ordered(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })

	return out
}

// Lock acquires the locks of all ids in canonical order.
//
// It waits until ctx is done at most; on failure every lock taken so far is
// released and ctx.Err() is returned. The returned func releases all locks.
func (t *Table) Lock(ctx context.Context, ids ...uuid.UUID) (func(), error) {
	ordered := Ordered(ids...)
	held := make([]uuid.UUID, 0, len(ordered))

	for _, id := range ordered {
		e := t.acquireEntry(id)

		if err := e.sem.Acquire(ctx, 1); err != nil {
			t.releaseEntry(id)
			t.unlock(held)

			return nil, err
		}

		held = append(held, id)
	}

	var once sync.Once

	return func() { once.Do(func() { t.unlock(held) }) }, nil
}

func (t *Table) unlock(held []uuid.UUID) {
	for i := len(held) - 1; i >= 0; i-- {
		t.mu.Lock()
		e := t.locks[held[i]]
		t.mu.Unlock()

		e.sem.Release(1)
		t.releaseEntry(held[i])
	}
}

func (t *Table) acquireEntry(id uuid.UUID) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.locks[id]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		t.locks[id] = e
	}

	e.refs++

	return e
}

func (t *Table) releaseEntry(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.locks[id]
	if !ok {
		return
	}

	e.refs--
	if e.refs == 0 {
		delete(t.locks, id)
	}
}

// Len returns the number of accounts currently locked or waited for.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.locks)
}
