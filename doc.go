// Copyright (c) The msq authors. All rights reserved.
// Licensed under the MIT License.

// Package msq implements a lock-free multi-producer/multi-consumer FIFO
// queue for in-process message passing. It is the classic Michael-Scott
// queue (a singly linked list with a sentinel head, mutated through
// compare-and-swap on Head, Tail, and each node's next pointer) paired
// with a guarded reclamation scheme that makes it safe to free a
// dequeued node without risking use-after-free by a concurrent reader.
//
// # Why reclamation is inseparable from the queue
//
// A lock-free singly linked list cannot simply call the allocator's free
// the instant a node is unlinked: another goroutine may have already
// loaded a pointer to that node and be about to dereference its next
// field. Michael-Scott's own paper resolves this ambiguity by hazard
// pointers; this package implements the equivalent "guard" protocol in
// package internal/grc and glues it to the queue in Queue.Take - every
// Take publishes the node it is about to read through a guard slot
// before doing anything that could race with another goroutine
// retiring that exact node, and only calls into reclamation once its own
// read is safely behind it.
//
// # ABA safety
//
// Every mutable link field - Head, Tail, and each node's next - is a
// tagged atomic pointer (package internal/tap): a (pointer, tag) pair
// updated as a single atomic unit, so that a field which cycles from
// value A to B and back to A between a reader's load and its
// compare-and-swap is still distinguishable from a field that never
// changed, because the tag moved and the pair no longer compares equal.
//
// # Concurrency model
//
// Push and Take are both lock-free: at least one goroutine calling
// either method always makes progress, regardless of how the scheduler
// treats the others. Neither method blocks on I/O, a mutex, or a
// condition variable. An empty queue simply returns ok == false from
// Take immediately; callers that want to wait for an item layer that
// behavior on top (for example with a backoff loop or a channel signaled
// out of band), since blocking/condition-wait semantics are explicitly
// outside what this package provides.
//
// # What this package does not do
//
// The queue has no bounded capacity, no priority ordering, no
// persistence, and no cross-process sharing - Push never fails for
// being "full", and it accepts values strictly in the order producers
// offer them. It also does not include a benchmark driver, a sample
// payload type, or console reporting: those are the job of whatever
// program imports this package.
package msq
