// Package latency provides the artificial scheduling delay applied to every
// store operation. The delay models I/O and is injectable so tests can run
// with no delay without changing operation logic.
package latency

import (
	"context"
	"time"
)

// Strategy suspends the calling operation for its latency window.
type Strategy interface {
	// Wait blocks for the strategy's window. A window that has begun always
	// runs to completion; cancellation of ctx is deliberately not observed,
	// matching the rule that an in-flight operation always writes through.
	Wait(ctx context.Context)
}

// Fixed returns a strategy that sleeps for a constant duration.
func Fixed(d time.Duration) Strategy {
	return fixed{d: d}
}

// None returns a strategy that never sleeps. Intended for tests.
func None() Strategy {
	return fixed{}
}

type fixed struct {
	d time.Duration
}

func (f fixed) Wait(_ context.Context) {
	if f.d > 0 {
		time.Sleep(f.d)
	}
}
