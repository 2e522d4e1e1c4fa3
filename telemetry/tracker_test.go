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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T) (*Tracker, *fakeClock) {
	t.Helper()

	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	tr, err := NewTracker(DefaultConfig(), clk.Now)
	require.NoError(t, err)
	return tr, clk
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{Interval: 0, Window: 10}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{Interval: time.Second, Window: 0}.Validate(), ErrInvalidConfig)

	_, err := NewTracker(Config{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTracker_ZeroBeforeSamples(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	tr.AddBytes(500)

	assert.Zero(t, tr.DataRate())
	assert.Zero(t, tr.FrameRate())
}

func TestTracker_SteadyRate(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	for range DefaultWindow {
		tr.Push(1000, 2, 50*time.Millisecond)
	}

	assert.InDelta(t, 20000.0, tr.DataRate(), 1e-6)
	assert.InDelta(t, 40.0, tr.FrameRate(), 1e-9)
	assert.Equal(t, DefaultWindow, tr.Snapshot().Samples)
}

func TestTracker_TickRespectsInterval(t *testing.T) {
	t.Parallel()

	tr, clk := newTestTracker(t)

	tr.AddBytes(300)
	clk.Advance(20 * time.Millisecond)
	assert.False(t, tr.Tick())
	assert.Zero(t, tr.DataRate())

	tr.AddBytes(700)
	tr.AddFrames(1)
	clk.Advance(80 * time.Millisecond)
	require.True(t, tr.Tick())

	// 1000 bytes over the full 100ms since the tracker started.
	assert.InDelta(t, 10000.0, tr.DataRate(), 1e-6)
	assert.InDelta(t, 10.0, tr.FrameRate(), 1e-9)

	// Accumulators restart after a sample.
	clk.Advance(100 * time.Millisecond)
	require.True(t, tr.Tick())
	assert.InDelta(t, 5000.0, tr.DataRate(), 1e-6)
}

func TestTracker_OldestEvicted(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTracker(t)
	tr.Push(1_000_000, 100, time.Second)
	for range DefaultWindow {
		tr.Push(10, 0, time.Second)
	}

	assert.InDelta(t, 10.0, tr.DataRate(), 1e-9)
	assert.Zero(t, tr.FrameRate())
}

func TestTracker_Reset(t *testing.T) {
	t.Parallel()

	tr, clk := newTestTracker(t)
	tr.Push(1000, 1, time.Second)
	tr.AddBytes(99)
	clk.Advance(time.Second)

	tr.Reset()
	assert.Zero(t, tr.DataRate())
	assert.Zero(t, tr.Snapshot().Samples)

	// The interval restarts at the reset, and pending bytes were dropped.
	clk.Advance(DefaultInterval)
	require.True(t, tr.Tick())
	assert.Zero(t, tr.DataRate())
}
