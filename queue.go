// Copyright (c) The msq authors. All rights reserved.
// Licensed under the MIT License.

package msq

import (
	"github.com/concurrentfifo/msq/internal/freelist"
	"github.com/concurrentfifo/msq/internal/grc"
	"github.com/concurrentfifo/msq/internal/tap"
)

// Queue is a lock-free multi-producer/multi-consumer FIFO. The zero value
// is not ready to use; construct one with New.
type Queue[T any] struct {
	head   tap.TAP[Node[T]]
	tail   tap.TAP[Node[T]]
	guards *grc.Table[Node[T]]
	free   freelist.List[Node[T]]
}

// New allocates a sentinel node and returns an empty Queue. Multiple
// Queue instances are fully independent; there is no shared global state
// between them.
func New[T any](opts ...Option) *Queue[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	sentinel := &Node[T]{}
	q := &Queue[T]{
		guards: grc.New[Node[T]](cfg.maxGuards, cfg.logger),
	}
	q.head.Init(sentinel)
	q.tail.Init(sentinel)
	return q
}

// Push enqueues value. It never fails (short of the allocator itself
// failing, which in Go aborts the process rather than returning an
// error) and never blocks.
func (q *Queue[T]) Push(value T) {
	n := q.allocNode()
	n.storeValue(value)

	var tail tap.Pointer[Node[T]]
	for {
		tail = q.tail.Load()
		next := tail.Ptr.next.Load()

		// Re-check Tail is still what we snapshotted before trusting next.
		if !tail.Equal(q.tail.Load()) {
			continue
		}

		if next.Ptr == nil {
			if tail.Ptr.next.CompareAndSwap(next, tap.Next(next, n)) {
				break
			}
		} else {
			// Tail is lagging behind the real end of the list; help it
			// catch up before retrying.
			q.tail.CompareAndSwap(tail, tap.Next(tail, next.Ptr))
		}
	}

	// Best-effort: swing Tail to the node we just linked. If this fails,
	// some other goroutine (a concurrent Push or Take) will already have
	// helped it along.
	q.tail.CompareAndSwap(tail, tap.Next(tail, n))
}

// Take removes and returns the value at the front of the queue. ok is
// false if the queue was observed empty at some point during the call;
// it never blocks waiting for a producer.
func (q *Queue[T]) Take() (value T, ok bool) {
	g := q.guards.Hire()

	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.Ptr.next.Load()

		// Publish what we're about to read before trusting it: if this
		// node is about to be unlinked and retired by a concurrent Take,
		// the retiring goroutine's Liberate call must observe this post
		// before it can safely free the node out from under us.
		q.guards.Post(g, head.Ptr)

		if !head.Equal(q.head.Load()) {
			continue
		}

		if head.Ptr == tail.Ptr {
			if next.Ptr == nil {
				q.guards.Fire(g)
				var zero T
				return zero, false
			}
			// Tail is lagging; help it catch up and retry.
			q.tail.CompareAndSwap(tail, tap.Next(tail, next.Ptr))
			continue
		}

		// The value must be read before the Head CAS below: once some
		// goroutine wins that CAS, next.Ptr is the new sentinel and the old
		// sentinel (head.Ptr) is eligible for retirement. Our guard is
		// posted on head.Ptr only. Other Takes may overtake this one
		// between the Head re-check above and the CAS below, advance Head
		// past next.Ptr, and retire and recycle it, so this read can see a
		// value stored by a later Push (Node.value is atomic for that
		// reason). Such a value is never returned: Head has then moved on,
		// so the tagged CAS fails and the loop retries. When the CAS
		// succeeds, Head is unchanged since the snapshot, so next.Ptr has
		// never been Head and had not been retired when it was read. See
		// the queue_test.go TestTakeGuardsOnlyHead test for the scenario
		// this reasoning covers.
		value = next.Ptr.loadValue()

		if q.head.CompareAndSwap(head, tap.Next(head, next.Ptr)) {
			q.guards.Fire(g)
			q.retire(head.Ptr)
			return value, true
		}
	}
}

// retire hands the now-unlinked node off to guarded reclamation and
// restocks the free list with whatever it releases immediately.
func (q *Queue[T]) retire(n *Node[T]) {
	candidates := map[*Node[T]]struct{}{n: {}}
	survivors := q.guards.Liberate(candidates)
	if len(survivors) == 0 {
		return
	}
	freed := make([]*Node[T], 0, len(survivors))
	for n := range survivors {
		var zero T
		n.storeValue(zero) // let the GC reclaim whatever the value held
		// Clear next's pointer but keep its tag, advanced by one, so a
		// stale (ptr, tag) snapshot held by some other goroutine from
		// before this node was retired can never again compare equal
		// once the node is reused by a later Push.
		tag := n.next.Load().Tag
		n.next.Store(tap.Pointer[Node[T]]{Tag: tag + 1})
		freed = append(freed, n)
	}
	q.free.Put(freed...)
}

func (q *Queue[T]) allocNode() *Node[T] {
	if n := q.free.Get(); n != nil {
		return n
	}
	return &Node[T]{}
}

// Close releases whatever the queue is still holding, including any
// nodes parked in the reclamation table's hand-off slots. It must only be
// called once no goroutine holds, or will ever again call, this Queue;
// Close performs no synchronization of its own to enforce that.
func (q *Queue[T]) Close() {
	for p := q.head.Load().Ptr; p != nil; {
		next := p.next.Load().Ptr
		p.next.Store(tap.Pointer[Node[T]]{})
		p = next
	}
	for _, n := range q.guards.Residue() {
		n.next.Store(tap.Pointer[Node[T]]{})
	}
}
