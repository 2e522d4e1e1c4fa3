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

package uart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/internal/syncutil"
	"go.bug.st/serial"
)

// Config holds serial port settings
type Config struct {
	// BaudRate is ignored by USB CDC devices but required by some drivers
	BaudRate int
	// ReadChunk is the most bytes pulled from the OS per Available call
	ReadChunk int
}

// DefaultConfig returns settings suitable for the camera board
func DefaultConfig() Config {
	return Config{
		BaudRate:  115200,
		ReadChunk: 1 << 16,
	}
}

// Link implements serialcam.SerialLink over a serial port.
//
// go.bug.st/serial has no way to ask how many bytes are queued, so the port
// is put in non-blocking mode and Available performs a zero-timeout read
// into a pending buffer that Read then serves from.
type Link struct {
	port     serial.Port
	portName string
	pending  []byte
	scratch  []byte
	mu       syncutil.Mutex
	closed   bool
}

// Open opens portName for streaming.
func Open(portName string, cfg Config) (*Link, error) {
	if cfg.ReadChunk <= 0 {
		return nil, fmt.Errorf("%w: read chunk %d", serialcam.ErrInvalidConfig, cfg.ReadChunk)
	}
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, mapPortError("open", portName, err)
	}

	link, err := newLink(port, portName, cfg.ReadChunk)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return link, nil
}

// New wraps an already open port, for example one created by a test.
func New(port serial.Port, portName string) (*Link, error) {
	return newLink(port, portName, DefaultConfig().ReadChunk)
}

func newLink(port serial.Port, portName string, chunk int) (*Link, error) {
	// A zero timeout makes Read return immediately with whatever is queued.
	if err := port.SetReadTimeout(0); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("failed to reset UART input buffer: %w", err)
	}
	return &Link{
		port:     port,
		portName: portName,
		scratch:  make([]byte, chunk),
	}, nil
}

// Available implements serialcam.SerialLink
func (l *Link) Available() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, serialcam.NewTransportError("read", l.portName, serialcam.ErrTransportClosed, serialcam.ErrorTypePermanent)
	}
	if len(l.pending) == 0 {
		n, err := l.port.Read(l.scratch)
		if err != nil {
			return 0, mapPortError("read", l.portName, err)
		}
		l.pending = append(l.pending[:0], l.scratch[:n]...)
	}
	return len(l.pending), nil
}

// Read implements serialcam.SerialLink
func (l *Link) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, serialcam.NewTransportError("read", l.portName, serialcam.ErrTransportClosed, serialcam.ErrorTypePermanent)
	}
	if len(l.pending) > 0 {
		n := copy(p, l.pending)
		l.pending = l.pending[n:]
		return n, nil
	}
	n, err := l.port.Read(p)
	if err != nil {
		return n, mapPortError("read", l.portName, err)
	}
	return n, nil
}

// Write implements serialcam.SerialLink. It returns once the bytes have
// left the host's output buffer.
func (l *Link) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, serialcam.NewTransportError("write", l.portName, serialcam.ErrTransportClosed, serialcam.ErrorTypePermanent)
	}
	n, err := l.port.Write(p)
	if err != nil {
		return n, mapPortError("write", l.portName, err)
	}
	if err := l.drainWithRetry(); err != nil {
		return n, mapPortError("write", l.portName, err)
	}
	return n, nil
}

// Close closes the port
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.pending = nil
	if err := l.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

// PortName implements serialcam.PortNamer
func (l *Link) PortName() string {
	return l.portName
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for the output buffer to empty, retrying
// interrupted system calls
func (l *Link) drainWithRetry() error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	var err error
	for attempt := range maxRetries {
		if err = l.port.Drain(); err == nil {
			return nil
		}
		if !isInterruptedSystemCall(err) {
			return fmt.Errorf("UART drain failed: %w", err)
		}
		time.Sleep(baseDelay * time.Duration(1<<attempt)) // 2ms, 4ms, 8ms
	}
	return fmt.Errorf("UART drain failed after %d retries: %w", maxRetries, err)
}

// mapPortError turns go.bug.st/serial errors into transport errors. A port
// that was closed underneath us, typically by unplugging the board, is
// reported as a permanent device-gone error.
func mapPortError(op, portName string, err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortNotFound:
			if op == "open" {
				return serialcam.NewTransportError(op, portName,
					fmt.Errorf("%w: %w", serialcam.ErrDeviceNotFound, err), serialcam.ErrorTypePermanent)
			}
			return serialcam.NewDeviceGoneError(op, portName, err)
		case serial.PortClosed:
			return serialcam.NewDeviceGoneError(op, portName, err)
		case serial.PortBusy, serial.PermissionDenied:
			return serialcam.NewTransportError(op, portName, err, serialcam.ErrorTypePermanent)
		default:
		}
	}
	switch op {
	case "write":
		return serialcam.NewTransportWriteError(portName, err)
	case "read":
		return serialcam.NewTransportReadError(portName, err)
	default:
		return serialcam.NewTransportError(op, portName, err, serialcam.ErrorTypeTransient)
	}
}
