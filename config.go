// Copyright (c) The msq authors. All rights reserved.
// Licensed under the MIT License.

package msq

import (
	"runtime"

	"go.uber.org/zap"
)

// Option configures a Queue at construction time. There is no supported
// way to reconfigure a Queue after New returns.
type Option func(*config)

type config struct {
	maxGuards int
	logger    *zap.Logger
}

// WithMaxGuards sets MG, the maximum number of guard slots (equivalently,
// the maximum number of goroutines that may have an in-flight Take at
// once) the queue's reclamation table will provision. Exceeding it is a
// fatal configuration error (see ErrGuardSlotsExhausted), so callers
// expecting high consumer concurrency should size this generously; the
// default is twice GOMAXPROCS, which satisfies the "default >= 2x peak
// thread count" recommendation for typical goroutine-per-core workloads
// but not necessarily for workloads that run far more concurrent
// consumers than CPUs.
func WithMaxGuards(n int) Option {
	if n <= 0 {
		panic("msq: WithMaxGuards requires a positive capacity")
	}
	return func(c *config) {
		c.maxGuards = n
	}
}

// WithLogger wires a *zap.Logger for structured diagnostics. Currently
// the only event logged is a fatal guard-table exhaustion immediately
// before the queue panics. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func defaultConfig() config {
	return config{
		maxGuards: defaultMaxGuards(),
		logger:    zap.NewNop(),
	}
}

func defaultMaxGuards() int {
	n := 2 * runtime.GOMAXPROCS(0)
	if n < 2 {
		n = 2
	}
	return n
}
