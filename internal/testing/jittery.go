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

package testing

import (
	"math/rand/v2"
	"time"

	"github.com/ZaparooProject/go-serialcam"
)

// JitterConfig configures the behavior of JitteryLink.
type JitterConfig struct {
	MaxLatencyMs      int
	FragmentMinBytes  int
	StallAfterBytes   int
	StallDuration     time.Duration
	Seed              uint64
	FragmentReads     bool
	USBBoundaryStress bool
}

// DefaultJitterConfig returns a sensible default configuration for testing.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatencyMs:     2,
		FragmentReads:    true,
		FragmentMinBytes: 1,
	}
}

// usbPacketSize is the full-speed bulk endpoint size CDC devices deliver in.
const usbPacketSize = 64

const fillThreshold = 4096

// JitteryLink wraps a SerialLink to simulate USB CDC delivery: bytes arrive
// in uneven fragments, often cut at 64-byte packet boundaries, with the
// occasional stall where nothing is available at all.
type JitteryLink struct {
	backend             serialcam.SerialLink
	rng                 *rand.Rand
	stallUntil          time.Time
	readBuf             []byte
	config              JitterConfig
	allowance           int
	bytesReadSinceStall int
	stallTriggered      bool
}

// NewJitteryLink wraps backend with jitter simulation.
func NewJitteryLink(backend serialcam.SerialLink, config JitterConfig) *JitteryLink {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
	}

	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}

	return &JitteryLink{
		backend: backend,
		config:  config,
		rng:     rng,
	}
}

// Write passes writes through to the backend without modification.
func (j *JitteryLink) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Available pulls everything the backend has and then reports only a
// fragment of it.
//
//nolint:gocognit,cyclop // Jitter simulation inherently requires multiple conditions
func (j *JitteryLink) Available() (int, error) {
	if j.config.MaxLatencyMs > 0 {
		if delay := time.Duration(j.rng.IntN(j.config.MaxLatencyMs+1)) * time.Millisecond; delay > 0 {
			time.Sleep(delay)
		}
	}

	if err := j.fill(); err != nil {
		return 0, err
	}

	if !j.stallUntil.IsZero() {
		if time.Now().Before(j.stallUntil) {
			j.allowance = 0
			return 0, nil
		}
		j.stallUntil = time.Time{}
	}

	toReturn := len(j.readBuf)
	if toReturn == 0 {
		j.allowance = 0
		return 0, nil
	}

	if j.config.StallAfterBytes > 0 && !j.stallTriggered {
		if j.bytesReadSinceStall >= j.config.StallAfterBytes {
			j.stallTriggered = true
			j.stallUntil = time.Now().Add(j.config.StallDuration)
			j.allowance = 0
			return 0, nil
		}
		toReturn = min(toReturn, j.config.StallAfterBytes-j.bytesReadSinceStall)
	}

	if j.config.USBBoundaryStress {
		untilBoundary := usbPacketSize - j.bytesReadSinceStall%usbPacketSize
		toReturn = min(toReturn, untilBoundary)
	}

	if j.config.FragmentReads && toReturn > j.config.FragmentMinBytes {
		toReturn = j.config.FragmentMinBytes + j.rng.IntN(toReturn-j.config.FragmentMinBytes+1)
	}

	j.allowance = toReturn
	return toReturn, nil
}

// Read returns at most what the last Available call reported.
func (j *JitteryLink) Read(buf []byte) (int, error) {
	n := min(len(buf), j.allowance, len(j.readBuf))
	copy(buf, j.readBuf[:n])
	j.readBuf = j.readBuf[n:]
	j.allowance -= n
	j.bytesReadSinceStall += n
	return n, nil
}

// Close closes the backend if it supports closing.
func (j *JitteryLink) Close() error {
	if c, ok := j.backend.(interface{ Close() error }); ok {
		return c.Close() //nolint:wrapcheck // Pass-through wrapper
	}
	return nil
}

// ResetStallState re-arms the stall trigger.
func (j *JitteryLink) ResetStallState() {
	j.bytesReadSinceStall = 0
	j.stallTriggered = false
	j.stallUntil = time.Time{}
}

// Buffered returns bytes pulled from the backend but not yet read.
func (j *JitteryLink) Buffered() int {
	return len(j.readBuf)
}

// fill tops up the local buffer. The backend is left alone while enough is
// buffered so a board that emits on demand is not drained ahead of the reader.
func (j *JitteryLink) fill() error {
	if len(j.readBuf) >= fillThreshold {
		return nil
	}
	n, err := j.backend.Available()
	if err != nil {
		return err //nolint:wrapcheck // Pass-through wrapper
	}
	if n == 0 {
		return nil
	}
	tmp := make([]byte, n)
	got, err := j.backend.Read(tmp)
	if err != nil {
		return err //nolint:wrapcheck // Pass-through wrapper
	}
	j.readBuf = append(j.readBuf, tmp[:got]...)
	return nil
}
