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

package serialcam

import (
	"errors"

	"github.com/ZaparooProject/go-serialcam/internal/syncutil"
)

// SerialLink is the byte pipe to the board. Implementations must not block:
// Available reports what can be read right now and Read never waits for
// more than that.
type SerialLink interface {
	// Available returns the number of bytes that can be read immediately
	Available() (int, error)

	// Read reads up to len(p) already-available bytes
	Read(p []byte) (int, error)

	// Write sends p to the board
	Write(p []byte) (int, error)
}

// PortNamer is implemented by links that know their device path. The name
// is used in error messages.
type PortNamer interface {
	PortName() string
}

func portName(link SerialLink) string {
	if pn, ok := link.(PortNamer); ok {
		return pn.PortName()
	}
	return ""
}

// MockLink is an in-memory SerialLink for testing
type MockLink struct {
	readErr  error
	writeErr error
	inbound  []byte
	written  []byte
	name     string
	mu       syncutil.Mutex
	maxWrite int
	writes   int
	closed   bool
}

// NewMockLink creates a mock link
func NewMockLink() *MockLink {
	return &MockLink{name: "mock", maxWrite: -1}
}

// Available implements SerialLink
func (m *MockLink) Available() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	return len(m.inbound), nil
}

// Read implements SerialLink
func (m *MockLink) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	n := copy(p, m.inbound)
	m.inbound = m.inbound[n:]
	return n, nil
}

// Write implements SerialLink
func (m *MockLink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	n := len(p)
	if m.maxWrite >= 0 && n > m.maxWrite {
		n = m.maxWrite
	}
	m.written = append(m.written, p[:n]...)
	m.writes++
	return n, nil
}

// Close marks the link closed
func (m *MockLink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("mock link already closed")
	}
	m.closed = true
	return nil
}

// PortName implements PortNamer
func (m *MockLink) PortName() string {
	return m.name
}

// Test helper methods

// Feed queues bytes for the session to read
func (m *MockLink) Feed(p []byte) {
	m.mu.Lock()
	m.inbound = append(m.inbound, p...)
	m.mu.Unlock()
}

// Written returns a copy of everything written so far
func (m *MockLink) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

// ResetWritten forgets everything written so far
func (m *MockLink) ResetWritten() {
	m.mu.Lock()
	m.written = nil
	m.writes = 0
	m.mu.Unlock()
}

// WriteCount returns how many Write calls succeeded
func (m *MockLink) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// SetReadError makes Available and Read fail with err (nil clears)
func (m *MockLink) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// SetWriteError makes Write fail with err (nil clears)
func (m *MockLink) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// SetMaxWrite caps the bytes accepted per Write to simulate short writes.
// A negative value removes the cap.
func (m *MockLink) SetMaxWrite(n int) {
	m.mu.Lock()
	m.maxWrite = n
	m.mu.Unlock()
}

// IsClosed reports whether Close was called
func (m *MockLink) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
