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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-serialcam/frame"
)

func TestFrameQueue_FIFO(t *testing.T) {
	t.Parallel()

	var q FrameQueue
	_, ok := q.Pop()
	require.False(t, ok)
	_, ok = q.Peek()
	require.False(t, ok)

	for i := range 200 {
		q.Push(frame.Frame{Width: i + 1, Height: 1, Pix: []byte{byte(i)}})
	}
	assert.Equal(t, 200, q.Len())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, head.Width)

	for i := range 150 {
		f, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i+1, f.Width)
	}
	assert.Equal(t, 50, q.Len())

	q.Push(frame.Frame{Width: 999})
	for i := 150; i < 200; i++ {
		f, _ := q.Pop()
		require.Equal(t, i+1, f.Width)
	}
	f, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 999, f.Width)
	assert.Equal(t, 0, q.Len())
}

func TestFrameQueue_Clear(t *testing.T) {
	t.Parallel()

	var q FrameQueue
	q.Push(frame.Frame{Width: 1})
	q.Push(frame.Frame{Width: 2})
	_, _ = q.Pop()
	q.Clear()

	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Streaming", StateStreaming.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.True(t, StateHalted.CanConfigure())
	assert.True(t, StateConfiguring.CanConfigure())
	assert.False(t, StateStreaming.CanConfigure())
	assert.False(t, StateClosed.CanConfigure())
}

func TestMockLink_ShortWrite(t *testing.T) {
	t.Parallel()

	m := NewMockLink()
	m.SetMaxWrite(1)
	n, err := m.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []byte{1}, m.Written())

	require.NoError(t, m.Close())
	_, err = m.Write([]byte{1})
	require.ErrorIs(t, err, ErrTransportClosed)
	assert.Error(t, m.Close())
}
