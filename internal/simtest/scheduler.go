// Copyright (c) The msq authors. All rights reserved.
// Licensed under the MIT License.

// Package simtest provides a deterministic, logical-time event scheduler
// used to force a specific interleaving of goroutines in tests that need
// to exercise a particular hand-off or contention scenario (for example,
// a consumer suspending mid-Take with a guard still posted while other
// consumers retire the node it protects). Each step names the logical
// time it runs at; the scheduler runs steps strictly in time order,
// regardless of the order they were scheduled in, the same way the
// teacher's discrete-event job-duration estimator orders task-completion
// events.
package simtest

import (
	"cmp"

	"github.com/addrummond/heap"
)

// Step is one unit of scheduled work: Fire runs synchronously on the
// scheduler's calling goroutine when Time comes due. Fire is free to
// start goroutines and block on channels to coordinate with them; doing
// so is how a Scheduler forces a specific real-concurrency interleaving
// rather than merely simulating one.
type Step struct {
	Time int64
	Fire func()
}

func (a *Step) Cmp(b *Step) int {
	return cmp.Compare(a.Time, b.Time)
}

// Scheduler orders and runs Steps by logical time. The zero value is
// ready to use.
type Scheduler struct {
	pending heap.Heap[Step, heap.Min]
}

// At schedules fire to run once every previously-scheduled step at an
// earlier logical time has run. Steps are compared by Time only, so the
// order among steps scheduled at equal times is not defined.
func (s *Scheduler) At(t int64, fire func()) {
	heap.PushOrderable(&s.pending, Step{Time: t, Fire: fire})
}

// Run executes every scheduled step in logical-time order and drains the
// scheduler.
func (s *Scheduler) Run() {
	for {
		step, ok := heap.PopOrderable(&s.pending)
		if !ok {
			return
		}
		step.Fire()
	}
}
