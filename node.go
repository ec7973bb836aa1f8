// Copyright (c) The msq authors. All rights reserved.
// Licensed under the MIT License.

package msq

import (
	"sync/atomic"

	"github.com/concurrentfifo/msq/internal/tap"
)

// Node is one link in the queue's singly linked list: a payload value and
// a tagged pointer to the next node. New returns a queue whose Head and
// Tail both start out pointing at a freshly allocated sentinel Node whose
// value is never read.
//
// value is boxed in an atomic.Value rather than held as a plain T. Take
// reads next.Ptr.value before it knows whether it has won the race to
// swing Head past next.Ptr (queue.go's Take); a losing iteration can
// therefore read a node that a concurrent Take has already unlinked,
// retired, freed, and handed back to a Push that overwrites its value.
// That read and write must not race as plain memory accesses even though
// the CAS loop guarantees the read value is only ever trusted once this
// goroutine's own Head CAS succeeds.
type Node[T any] struct {
	value atomic.Value
	next  tap.TAP[Node[T]]
}

// loadValue returns the node's current value, or the zero value of T if
// none has ever been stored.
func (n *Node[T]) loadValue() T {
	v := n.value.Load()
	if v == nil {
		var zero T
		return zero
	}
	return v.(struct{ v T }).v
}

// storeValue publishes v as the node's value. It is called before the node
// is linked into the list (Push) or after it has been retired (retire
// clearing a freed node); a stale Take may still read the node at either
// point, which the atomic.Value makes safe. v is wrapped in a struct so
// that every store has the same concrete type, even when T is an
// interface type and v is nil or holds values of differing dynamic types.
func (n *Node[T]) storeValue(v T) {
	n.value.Store(struct{ v T }{v})
}
