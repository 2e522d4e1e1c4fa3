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
	"fmt"
	"io"
	"os"
	"runtime"
	"syscall"
)

// Error categories for session and transport handling
var (
	// Session errors - caller bug, not retryable
	ErrInvalidState  = errors.New("operation not allowed in current session state")
	ErrSessionClosed = fmt.Errorf("session closed: %w", ErrInvalidState)

	// Transport errors - potentially retryable after reattaching
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportClosed  = errors.New("transport is closed")
	ErrShortWrite       = errors.New("short write")

	// Device errors - the board went away or was never there
	ErrDeviceGone     = errors.New("device disconnected")
	ErrDeviceNotFound = errors.New("device not found")

	// Data errors - not retryable
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates the link is unusable and must be reopened
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError wraps link-level errors with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrShortWrite):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the board or link is gone and
// the caller has to reopen the port before streaming again.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypePermanent
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, ErrDeviceGone),
		errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, os.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for device disconnection detection.
// These are defined here because they're not available on non-Windows platforms.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors raised when the USB CDC
// device is unplugged during I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
		return true
	}

	if runtime.GOOS == "windows" {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case errAccessDenied, errGenFailure, errNoSuchDevice:
			return true
		}
	}
	return false
}

// classify picks the ErrorType for an error returned by a link.
func classify(err error) ErrorType {
	var te *TransportError
	switch {
	case errors.As(err, &te):
		return te.Type
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, os.ErrDeadlineExceeded):
		return ErrorTypeTimeout
	case IsFatal(err):
		return ErrorTypePermanent
	default:
		return ErrorTypeTransient
	}
}

// Error constructors for consistent error creation

// NewTransportError creates a standard transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTransportReadError wraps a failed link read. The category is derived
// from cause.
func NewTransportReadError(port string, cause error) *TransportError {
	return NewTransportError("read", port, fmt.Errorf("%w: %w", ErrTransportRead, cause), classify(cause))
}

// NewTransportWriteError wraps a failed or short link write. The category
// is derived from cause.
func NewTransportWriteError(port string, cause error) *TransportError {
	return NewTransportError("write", port, fmt.Errorf("%w: %w", ErrTransportWrite, cause), classify(cause))
}

// NewTimeoutError creates a timeout error for link operations
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewDeviceGoneError creates a permanent error for a vanished board
func NewDeviceGoneError(op, port string, cause error) *TransportError {
	if cause == nil {
		return NewTransportError(op, port, ErrDeviceGone, ErrorTypePermanent)
	}
	return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrDeviceGone, cause), ErrorTypePermanent)
}
