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

import "github.com/ZaparooProject/go-serialcam/frame"

// FrameQueue is an unbounded FIFO of decoded frames. The consumer is
// expected to drain it; nothing is dropped.
type FrameQueue struct {
	frames []frame.Frame
	head   int
}

// Push appends a frame
func (q *FrameQueue) Push(f frame.Frame) {
	q.frames = append(q.frames, f)
}

// Pop removes and returns the oldest frame
func (q *FrameQueue) Pop() (frame.Frame, bool) {
	if q.head >= len(q.frames) {
		return frame.Frame{}, false
	}
	f := q.frames[q.head]
	q.frames[q.head] = frame.Frame{}
	q.head++

	if q.head == len(q.frames) {
		q.frames = q.frames[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.frames) {
		n := copy(q.frames, q.frames[q.head:])
		clear(q.frames[n:])
		q.frames = q.frames[:n]
		q.head = 0
	}
	return f, true
}

// Peek returns the oldest frame without removing it
func (q *FrameQueue) Peek() (frame.Frame, bool) {
	if q.head >= len(q.frames) {
		return frame.Frame{}, false
	}
	return q.frames[q.head], true
}

// Len returns the number of queued frames
func (q *FrameQueue) Len() int {
	return len(q.frames) - q.head
}

// Clear drops all queued frames
func (q *FrameQueue) Clear() {
	clear(q.frames)
	q.frames = q.frames[:0]
	q.head = 0
}
