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

package frame

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seed + byte(i*7)
	}
	return p
}

func framed(p []byte) []byte {
	out := make([]byte, 0, PreambleLen+len(p))
	out = append(out, Preamble[:]...)
	return append(out, p...)
}

func TestPreamble_IsMarkerLinePrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MarkerLine[:PreambleLen], Preamble[:])
	assert.Equal(t, byte(0x48), Preamble[0])
	assert.Equal(t, byte(0x2d), MarkerLine[MarkerLineLen-1])
}

func TestPreambleOfLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{name: "sync prefix only", n: SyncPrefixLen},
		{name: "default", n: PreambleLen},
		{name: "full marker line", n: MarkerLineLen},
		{name: "too short", n: SyncPrefixLen - 1, wantErr: true},
		{name: "too long", n: MarkerLineLen + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := PreambleOfLength(tt.n)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPreambleLength)
				return
			}
			require.NoError(t, err)
			assert.Len(t, p, tt.n)
			assert.Equal(t, MarkerLine[:tt.n], p)
		})
	}
}

func TestCropWindow_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		crop    CropWindow
		wantErr bool
	}{
		{name: "default", crop: CropWindow{StartX: 2, StartY: 2, Width: 320, Height: 240}},
		{name: "zero origin", crop: CropWindow{Width: 1, Height: 1}},
		{name: "zero width", crop: CropWindow{Width: 0, Height: 10}, wantErr: true},
		{name: "negative height", crop: CropWindow{Width: 10, Height: -1}, wantErr: true},
		{name: "negative start", crop: CropWindow{StartX: -1, Width: 10, Height: 10}, wantErr: true},
		{name: "largest dcmi window", crop: CropWindow{StartX: MaxDimension, Width: MaxDimension, Height: MaxDimension}},
		{name: "width past dcmi range", crop: CropWindow{Width: MaxDimension + 1, Height: 1}, wantErr: true},
		{name: "start past dcmi range", crop: CropWindow{StartY: MaxDimension + 1, Width: 1, Height: 1}, wantErr: true},
		{name: "area overflows", crop: CropWindow{Width: math.MaxInt/2 + 1, Height: 2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.crop.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCrop)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFrame_Accessors(t *testing.T) {
	t.Parallel()

	f := Frame{Width: 3, Height: 2, Pix: []byte{1, 2, 3, 4, 5, 6}}

	require.True(t, f.Valid())
	assert.Equal(t, []byte{4, 5, 6}, f.Row(1))
	assert.Equal(t, byte(6), f.At(2, 1))
	assert.Equal(t, [][]byte{{1, 2, 3}, {4, 5, 6}}, f.Rows())
	assert.False(t, Frame{Width: 2, Height: 2, Pix: []byte{1}}.Valid())
}

func TestSynchronizer_TryExtractRejectsOverflowingCrop(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer()
	s.Ingest(framed(payload(16, 1)))
	before := s.Buffered()

	for _, crop := range []CropWindow{
		{Width: math.MaxInt/2 + 1, Height: 2},
		{Width: math.MaxInt, Height: 1},
		{Width: -4, Height: -4},
	} {
		require.NotPanics(t, func() {
			_, ok := s.TryExtract(crop)
			assert.False(t, ok, "%+v", crop)
		})
	}
	assert.Equal(t, before, s.Buffered())
}

func TestSynchronizer_ResyncAlignedIsNoop(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer()
	s.Ingest(framed(payload(16, 1)))
	before := s.Buffered()

	assert.Equal(t, 0, s.Resync())
	assert.Equal(t, before, s.Buffered())
}

func TestSynchronizer_ResyncTrimsLeadingGarbage(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer()
	s.Ingest(bytes.Repeat([]byte{0xAA}, 50))
	s.Ingest(framed(payload(4, 9)))

	assert.Equal(t, 50, s.Resync())
	assert.Equal(t, PreambleLen+4, s.Buffered())
}

func TestSynchronizer_ResyncDiscardsUnmatched(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer()
	s.Ingest(bytes.Repeat([]byte{0x00}, 100))

	assert.Equal(t, 100, s.Resync())
	assert.Equal(t, 0, s.Buffered())
}

func TestSynchronizer_GarbageThenFrames(t *testing.T) {
	t.Parallel()

	crop := CropWindow{Width: 8, Height: 4}
	want := [][]byte{payload(32, 1), payload(32, 2), payload(32, 3)}

	var stream []byte
	stream = append(stream, bytes.Repeat([]byte{0x55}, 50)...)
	for _, p := range want {
		stream = append(stream, framed(p)...)
	}

	s := NewSynchronizer()
	s.Ingest(stream)
	frames, dropped := s.Drain(crop)

	assert.Equal(t, 50, dropped)
	require.Len(t, frames, len(want))
	for i, f := range frames {
		assert.Equal(t, want[i], f.Pix, "frame %d", i)
		assert.Equal(t, 8, f.Width)
		assert.Equal(t, 4, f.Height)
	}
	assert.Equal(t, 0, s.Buffered())
}

func TestSynchronizer_IncompleteFrameWaits(t *testing.T) {
	t.Parallel()

	crop := CropWindow{Width: 10, Height: 10}
	full := framed(payload(100, 4))

	s := NewSynchronizer()
	s.Ingest(full[:len(full)-1])
	_, ok := s.TryExtract(crop)
	require.False(t, ok)
	assert.Equal(t, len(full)-1, s.Buffered())

	s.Ingest(full[len(full)-1:])
	f, ok := s.TryExtract(crop)
	require.True(t, ok)
	assert.Equal(t, payload(100, 4), f.Pix)
}

func TestSynchronizer_SplitPreambleIsPreserved(t *testing.T) {
	t.Parallel()

	crop := CropWindow{Width: 16, Height: 2}
	want := payload(32, 7)
	stream := append(bytes.Repeat([]byte{0x01}, 20), framed(want)...)

	// Split inside the sync prefix.
	cut := 20 + SyncPrefixLen/2

	s := NewSynchronizer()
	s.Ingest(stream[:cut])
	assert.Equal(t, 20, s.Resync())
	assert.Equal(t, SyncPrefixLen/2, s.Buffered())

	s.Ingest(stream[cut:])
	frames, dropped := s.Drain(crop)
	assert.Equal(t, 0, dropped)
	require.Len(t, frames, 1)
	assert.Equal(t, want, frames[0].Pix)
}

func TestSynchronizer_ExtractedPixelsAreCopied(t *testing.T) {
	t.Parallel()

	crop := CropWindow{Width: 2, Height: 2}
	in := framed([]byte{1, 2, 3, 4})

	s := NewSynchronizer()
	s.Ingest(in)
	f, ok := s.TryExtract(crop)
	require.True(t, ok)

	in[PreambleLen] = 0xFF
	assert.Equal(t, byte(1), f.Pix[0])
}

func TestSynchronizer_CustomPreambleLength(t *testing.T) {
	t.Parallel()

	s, err := NewSynchronizerWithPreamble(MarkerLineLen)
	require.NoError(t, err)
	assert.Equal(t, MarkerLineLen, s.PreambleLen())

	s.Ingest(MarkerLine[:])
	s.Ingest([]byte{9, 8, 7, 6})
	f, ok := s.TryExtract(CropWindow{Width: 4, Height: 1})
	require.True(t, ok)
	assert.Equal(t, []byte{9, 8, 7, 6}, f.Pix)

	_, err = NewSynchronizerWithPreamble(8)
	assert.ErrorIs(t, err, ErrInvalidPreambleLength)
}

func TestSynchronizer_Reset(t *testing.T) {
	t.Parallel()

	s := NewSynchronizer()
	s.Ingest(framed(payload(10, 0)))
	s.Reset()

	assert.Equal(t, 0, s.Buffered())
	_, ok := s.TryExtract(CropWindow{Width: 10, Height: 1})
	assert.False(t, ok)
}

func TestPartialPrefixSuffix(t *testing.T) {
	t.Parallel()

	prefix := Preamble[:SyncPrefixLen]

	assert.Equal(t, 0, partialPrefixSuffix(nil, prefix))
	assert.Equal(t, 0, partialPrefixSuffix([]byte{0x00, 0x01}, prefix))
	assert.Equal(t, 3, partialPrefixSuffix(append([]byte{0x00}, prefix[:3]...), prefix))
	// A full prefix is not a proper prefix; the longest proper one is returned.
	assert.Equal(t, SyncPrefixLen-1, partialPrefixSuffix(prefix[:SyncPrefixLen-1], prefix))
}
