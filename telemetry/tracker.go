// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"errors"
	"fmt"
	"time"
)

// Default sampling parameters
const (
	DefaultInterval = 50 * time.Millisecond
	DefaultWindow   = 10
)

// ErrInvalidConfig is returned for non-positive sampling parameters.
var ErrInvalidConfig = errors.New("invalid telemetry config")

// Config controls how throughput is sampled.
type Config struct {
	// Interval is the minimum time between samples.
	Interval time.Duration
	// Window is the number of samples averaged.
	Window int
}

// DefaultConfig returns the default sampling configuration.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Window:   DefaultWindow,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval %v", ErrInvalidConfig, c.Interval)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window %d", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Snapshot is a point-in-time view of the tracker.
type Snapshot struct {
	DataRate  float64 // bytes per second
	FrameRate float64 // frames per second
	Samples   int     // samples recorded since the last reset, capped at the window
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%.1f kB/s, %.2f fps", s.DataRate/1000, s.FrameRate)
}

// Tracker computes moving-average byte and frame throughput over a fixed
// window of timed samples. It is not safe for concurrent use.
type Tracker struct {
	lastSample time.Time
	clock      Clock
	bytes      []float64
	frames     []float64
	elapsed    []float64
	cfg        Config
	pendBytes  int
	pendFrames int
	head       int
	samples    int
}

// NewTracker returns a tracker that starts its first interval now. A nil
// clock uses time.Now.
func NewTracker(cfg Config, clock Clock) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	t := &Tracker{
		cfg:     cfg,
		clock:   clock,
		bytes:   make([]float64, cfg.Window),
		frames:  make([]float64, cfg.Window),
		elapsed: make([]float64, cfg.Window),
	}
	t.lastSample = clock()
	return t, nil
}

// AddBytes accumulates bytes read since the last sample.
func (t *Tracker) AddBytes(n int) {
	t.pendBytes += n
}

// AddFrames accumulates frames decoded since the last sample.
func (t *Tracker) AddFrames(n int) {
	t.pendFrames += n
}

// Tick records a sample if at least Interval has passed since the previous
// one and reports whether it did.
func (t *Tracker) Tick() bool {
	now := t.clock()
	dt := now.Sub(t.lastSample)
	if dt < t.cfg.Interval {
		return false
	}
	t.Push(t.pendBytes, t.pendFrames, dt)
	t.pendBytes = 0
	t.pendFrames = 0
	t.lastSample = now
	return true
}

// Push records one sample directly, evicting the oldest.
func (t *Tracker) Push(bytes, frames int, elapsed time.Duration) {
	t.bytes[t.head] = float64(bytes)
	t.frames[t.head] = float64(frames)
	t.elapsed[t.head] = elapsed.Seconds()
	t.head = (t.head + 1) % len(t.bytes)
	if t.samples < len(t.bytes) {
		t.samples++
	}
}

// DataRate returns bytes per second over the window, or 0 before any time
// has been sampled.
func (t *Tracker) DataRate() float64 {
	return rate(t.bytes, t.elapsed)
}

// FrameRate returns frames per second over the window, or 0 before any time
// has been sampled.
func (t *Tracker) FrameRate() float64 {
	return rate(t.frames, t.elapsed)
}

// Reset clears the window and pending counts and restarts the interval.
func (t *Tracker) Reset() {
	clear(t.bytes)
	clear(t.frames)
	clear(t.elapsed)
	t.pendBytes = 0
	t.pendFrames = 0
	t.head = 0
	t.samples = 0
	t.lastSample = t.clock()
}

// Snapshot returns the current rates.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		DataRate:  t.DataRate(),
		FrameRate: t.FrameRate(),
		Samples:   t.samples,
	}
}

func rate(counts, elapsed []float64) float64 {
	var n, dt float64
	for i := range counts {
		n += counts[i]
		dt += elapsed[i]
	}
	if dt == 0 {
		return 0
	}
	return n / dt
}
