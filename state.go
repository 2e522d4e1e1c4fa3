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

import "fmt"

// State represents the lifecycle state of a Session
type State int

const (
	// StateUnconfigured is the state before the initial halt reaches the board
	StateUnconfigured State = iota
	// StateHalted means DCMI is stopped and the board may be reconfigured
	StateHalted
	// StateConfiguring means configuration commands were sent since the last halt
	StateConfiguring
	// StateStreaming means DCMI is running and Service decodes frames
	StateStreaming
	// StateClosed is terminal
	StateClosed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "Unconfigured"
	case StateHalted:
		return "Halted"
	case StateConfiguring:
		return "Configuring"
	case StateStreaming:
		return "Streaming"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CanConfigure reports whether configuration commands are accepted in s.
func (s State) CanConfigure() bool {
	return s == StateHalted || s == StateConfiguring
}
