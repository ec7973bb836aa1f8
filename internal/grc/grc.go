// Copyright (c) The msq authors. All rights reserved.
// Licensed under the MIT License.

// Package grc implements Guarded Reclamation: a hazard-pointer-style
// "guard" protocol with a per-slot hand-off list. A goroutine that has
// unlinked a node from a lock-free structure cannot free it while any
// other goroutine still holds a guard on it; Liberate arbitrates between
// freeing immediately and parking the node in the guard's hand-off slot
// for release later.
//
// The table is sized per instance (not a package-level global), so that
// multiple queues coexist without sharing reclamation state.
package grc

import (
	"sync/atomic"

	"github.com/concurrentfifo/msq/internal/tap"
	"go.uber.org/zap"
)

// Error is a constant error type, allowing sentinel errors to be declared
// as typed constants instead of package-level vars.
type Error string

func (e Error) Error() string { return string(e) }

// ErrGuardSlotsExhausted is logged (and carried as a panic value) when
// Hire cannot find a free slot within the table's configured capacity.
// This is a fatal configuration error: the concurrency actually in use
// exceeds what the table was provisioned for.
const ErrGuardSlotsExhausted = Error("grc: guard slots exhausted")

// Table is the guard table for one reclaimed structure. The zero value is
// not ready to use; construct with New.
type Table[T any] struct {
	guards    []atomic.Bool
	post      []atomic.Pointer[T]
	handoff   []tap.TAP[T]
	maxGuards atomic.Int64
	logger    *zap.Logger
}

// New allocates a guard table with room for capacity concurrently-hired
// guards. logger may be nil, in which case fatal diagnostics are
// discarded.
func New[T any](capacity int, logger *zap.Logger) *Table[T] {
	if capacity <= 0 {
		panic("grc: capacity must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Table[T]{
		guards:  make([]atomic.Bool, capacity),
		post:    make([]atomic.Pointer[T], capacity),
		handoff: make([]tap.TAP[T], capacity),
		logger:  logger,
	}
	t.maxGuards.Store(-1)
	return t
}

// Capacity returns MG, the table's configured slot count.
func (t *Table[T]) Capacity() int {
	return len(t.guards)
}

// Residue returns every node still parked in a hand-off slot. It is only
// meaningful at quiescence (no goroutine holding or about to call the
// reclaimed structure again), which is exactly the precondition callers
// like Queue.Close already require of themselves.
func (t *Table[T]) Residue() []*T {
	var out []*T
	max := t.maxGuards.Load()
	for i := int64(0); i <= max; i++ {
		if p := t.handoff[i].Load().Ptr; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Hire claims a free slot via linear scan and CAS, grows the high-water
// mark MAXG to cover it, and returns its index. It panics with
// ErrGuardSlotsExhausted if every slot is occupied; this is an abort-level
// configuration error, not a condition callers are expected to recover
// from in the hot path.
func (t *Table[T]) Hire() int {
	for i := range t.guards {
		if t.guards[i].CompareAndSwap(false, true) {
			t.growMaxGuards(int64(i))
			return i
		}
	}
	t.logger.Error("guard table exhausted",
		zap.Int("capacity", len(t.guards)),
		zap.Error(ErrGuardSlotsExhausted),
	)
	panic(ErrGuardSlotsExhausted)
}

func (t *Table[T]) growMaxGuards(i int64) {
	for {
		cur := t.maxGuards.Load()
		if cur >= i {
			return
		}
		if t.maxGuards.CompareAndSwap(cur, i) {
			return
		}
	}
}

// Post publishes the node slot i's owner is currently observing. Legal as
// a plain store: slot exclusivity (only the hiring goroutine ever writes
// POST[i] while GUARDS[i] is true) means there is no concurrent writer to
// race against.
func (t *Table[T]) Post(i int, node *T) {
	t.post[i].Store(node)
}

// Fire releases slot i back to the pool. It does not clear POST[i]; a
// later Hire of the same index may observe a stale post value, which is
// harmless because Liberate only trusts POST[i] when it also appears in
// the caller's own candidate set.
func (t *Table[T]) Fire(i int) {
	t.guards[i].Store(false)
}

const maxParkAttempts = 3

// Liberate takes the set of nodes the caller believes are unlinked and
// wants to free, and returns the subset safe to free now. Nodes that
// cannot yet be freed are parked in a hand-off slot and removed from the
// returned set; survivors displaced out of a hand-off slot (because their
// guard has since moved on) are added to the returned set in the same
// pass.
func (t *Table[T]) Liberate(candidates map[*T]struct{}) map[*T]struct{} {
	max := t.maxGuards.Load()
	for i := int64(0); i <= max; i++ {
		h := t.handoff[i].Load()
		v := t.post[i].Load()

		if v != nil {
			if _, isCandidate := candidates[v]; isCandidate {
				t.parkCandidate(int(i), v, h, candidates)
				continue
			}
		}

		// Case B: no hazard on this slot's current POST value. If a
		// previously parked node is sitting in HNDOFF[i] and isn't the
		// node currently posted, its protector has moved on; promote it
		// back into the candidate set.
		if h.Ptr != nil && h.Ptr != v {
			desired := tap.Next(h, (*T)(nil))
			if t.handoff[i].CompareAndSwap(h, desired) {
				candidates[h.Ptr] = struct{}{}
			}
		}
	}
	return candidates
}

func (t *Table[T]) parkCandidate(i int, v *T, h tap.Pointer[T], candidates map[*T]struct{}) {
	for attempt := 0; attempt < maxParkAttempts; attempt++ {
		desired := tap.Next(h, v)
		if t.handoff[i].CompareAndSwap(h, desired) {
			delete(candidates, v)
			if h.Ptr != nil {
				// Its own protector has long since moved on; we inherit
				// the burden of eventually freeing it.
				candidates[h.Ptr] = struct{}{}
			}
			return
		}

		h = t.handoff[i].Load()
		if attempt == 1 && h.Ptr != nil {
			// Someone else is already parking in this slot.
			return
		}
		if t.post[i].Load() != v {
			// The observer moved off this node entirely.
			return
		}
	}
}
