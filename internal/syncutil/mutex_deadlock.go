//go:build deadlock

// Package syncutil provides mutex types that can optionally use deadlock detection.
// This file is compiled when building with -tags=deadlock.
package syncutil

import (
	"io"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// Mutex wraps deadlock.Mutex for deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex wraps deadlock.RWMutex for deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}

// DetectionEnabled reports whether the binary was built with -tags=deadlock.
const DetectionEnabled = true

// Configure sets how long a lock may be waited on before it is reported and
// where reports are written. A zero timeout keeps the library default.
// Reports do not abort the process, so a stuck console is logged rather than killed.
func Configure(timeout time.Duration, out io.Writer) {
	if timeout > 0 {
		deadlock.Opts.DeadlockTimeout = timeout
	}
	if out != nil {
		deadlock.Opts.LogBuf = out
	}
	deadlock.Opts.OnPotentialDeadlock = func() {}
}
