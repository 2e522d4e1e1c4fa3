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
)

// Synchronizer recovers frame boundaries from an unframed byte stream.
// Frames carry no length field: the board sends the preamble followed by
// exactly one crop window worth of pixels, so the caller supplies the crop
// that was configured when extracting.
//
// A Synchronizer is not safe for concurrent use.
type Synchronizer struct {
	buf      []byte
	preamble []byte
	prefix   []byte
}

// NewSynchronizer returns a synchronizer for the default PreambleLen preamble.
func NewSynchronizer() *Synchronizer {
	s, _ := NewSynchronizerWithPreamble(PreambleLen)
	return s
}

// NewSynchronizerWithPreamble returns a synchronizer for firmware that sends
// the first n bytes of the marker line.
func NewSynchronizerWithPreamble(n int) (*Synchronizer, error) {
	p, err := PreambleOfLength(n)
	if err != nil {
		return nil, err
	}
	return &Synchronizer{
		preamble: p,
		prefix:   p[:SyncPrefixLen],
	}, nil
}

// PreambleLen returns the number of preamble bytes skipped per frame.
func (s *Synchronizer) PreambleLen() int {
	return len(s.preamble)
}

// Ingest appends p to the receive buffer. No parsing happens here.
func (s *Synchronizer) Ingest(p []byte) {
	s.buf = append(s.buf, p...)
}

// Buffered returns the number of unconsumed bytes.
func (s *Synchronizer) Buffered() int {
	return len(s.buf)
}

// Reset discards all buffered bytes.
func (s *Synchronizer) Reset() {
	s.buf = nil
}

// Resync left-aligns the buffer on the first preamble occurrence and
// returns the number of bytes dropped. An already aligned buffer is left
// untouched. When no occurrence exists the buffer is discarded except for
// a trailing partial preamble, which may be completed by the next Ingest.
func (s *Synchronizer) Resync() int {
	if bytes.HasPrefix(s.buf, s.prefix) {
		return 0
	}
	if i := bytes.Index(s.buf, s.prefix); i >= 0 {
		s.consume(i)
		return i
	}
	drop := len(s.buf) - partialPrefixSuffix(s.buf, s.prefix)
	s.consume(drop)
	return drop
}

// TryExtract removes and returns one frame of the given crop if the buffer
// starts with the preamble and holds the whole payload. The returned pixels
// are a private copy.
func (s *Synchronizer) TryExtract(crop CropWindow) (Frame, bool) {
	if crop.Width <= 0 || crop.Height <= 0 || crop.Width > math.MaxInt/crop.Height {
		return Frame{}, false
	}
	area := crop.Area()
	if area > math.MaxInt-len(s.preamble) {
		return Frame{}, false
	}
	total := len(s.preamble) + area
	if len(s.buf) < total || !bytes.HasPrefix(s.buf, s.prefix) {
		return Frame{}, false
	}

	pix := make([]byte, area)
	copy(pix, s.buf[len(s.preamble):total])
	s.consume(total)

	return Frame{Pix: pix, Width: crop.Width, Height: crop.Height}, true
}

// Drain extracts every complete frame currently buffered, in stream order.
// The second result is the total number of bytes discarded while aligning.
func (s *Synchronizer) Drain(crop CropWindow) (frames []Frame, dropped int) {
	for {
		dropped += s.Resync()
		f, ok := s.TryExtract(crop)
		if !ok {
			return frames, dropped
		}
		frames = append(frames, f)
	}
}

func (s *Synchronizer) consume(n int) {
	if n >= len(s.buf) {
		s.buf = nil
		return
	}
	s.buf = s.buf[n:]
}

// partialPrefixSuffix returns the length of the longest suffix of buf that is
// a proper prefix of prefix.
func partialPrefixSuffix(buf, prefix []byte) int {
	k := min(len(buf), len(prefix)-1)
	for ; k > 0; k-- {
		if bytes.Equal(buf[len(buf)-k:], prefix[:k]) {
			return k
		}
	}
	return 0
}
