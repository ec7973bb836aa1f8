// Copyright (c) The msq authors. All rights reserved.
// Licensed under the MIT License.

// Package freelist implements the thread-local-style free-list
// optimization described for the queue: nodes returned as survivors by
// guarded reclamation are stashed here instead of left for the garbage
// collector, and Push drains this list before allocating a fresh node.
// This changes only allocation pressure, never the CAS protocol that
// makes the queue and its reclamation scheme correct.
package freelist

import (
	"sync"

	"github.com/gammazero/deque"
)

// List is a free-list of reusable *T values, safe for concurrent use by
// many producers and consumers. A mutex-guarded deque is sufficient here:
// Get/Put are off the CAS fast path, so there is nothing to gain from
// making the list itself lock-free, and the deque gives O(1) push/pop
// from either end without the amortized-doubling churn of a plain slice.
type List[T any] struct {
	mu    sync.Mutex
	items deque.Deque[*T]
}

// Put stashes nodes for reuse. The caller must have already cleared any
// payload the node held, so the garbage collector can reclaim whatever it
// pointed to even while the node struct itself lives on in the list.
func (l *List[T]) Put(nodes ...*T) {
	if len(nodes) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range nodes {
		l.items.PushBack(n)
	}
}

// Get returns a previously-retired node for reuse, or nil if the list is
// empty, in which case the caller should allocate a fresh one.
func (l *List[T]) Get() *T {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.items.Len() == 0 {
		return nil
	}
	return l.items.PopBack()
}

// Len reports how many nodes are currently parked for reuse.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items.Len()
}
