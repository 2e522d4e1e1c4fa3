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
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Frame errors
var (
	ErrInvalidCrop           = errors.New("invalid crop window")
	ErrInvalidPreambleLength = errors.New("invalid preamble length")
)

// MaxDimension bounds every crop field. DCMI crop registers are 16 bits wide.
const MaxDimension = math.MaxUint16

// CropWindow is the image region the board is asked to stream, in pixels.
type CropWindow struct {
	StartX int
	StartY int
	Width  int
	Height int
}

// Area returns the payload size of one frame in bytes.
func (c CropWindow) Area() int {
	return c.Width * c.Height
}

// Validate reports whether the window describes a streamable region.
func (c CropWindow) Validate() error {
	if c.StartX < 0 || c.StartY < 0 {
		return fmt.Errorf("%w: negative origin (%d, %d)", ErrInvalidCrop, c.StartX, c.StartY)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidCrop, c.Width, c.Height)
	}
	if max(c.StartX, c.StartY, c.Width, c.Height) > MaxDimension {
		return fmt.Errorf("%w: %s exceeds %d", ErrInvalidCrop, c, MaxDimension)
	}
	if c.Width > math.MaxInt/c.Height {
		return fmt.Errorf("%w: area of %dx%d overflows", ErrInvalidCrop, c.Width, c.Height)
	}
	return nil
}

func (c CropWindow) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", c.Width, c.Height, c.StartX, c.StartY)
}

// ParseCropWindow parses the "WxH+X+Y" form produced by String. The offset
// may be omitted, as in "320x240", meaning an origin of (0, 0).
func ParseCropWindow(s string) (CropWindow, error) {
	var c CropWindow
	s = strings.TrimSpace(s)
	size, offset, hasOffset := strings.Cut(s, "+")

	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return CropWindow{}, fmt.Errorf("%w: %q: want WxH+X+Y", ErrInvalidCrop, s)
	}
	var err error
	if c.Width, err = strconv.Atoi(w); err != nil {
		return CropWindow{}, fmt.Errorf("%w: %q: width: %w", ErrInvalidCrop, s, err)
	}
	if c.Height, err = strconv.Atoi(h); err != nil {
		return CropWindow{}, fmt.Errorf("%w: %q: height: %w", ErrInvalidCrop, s, err)
	}
	if hasOffset {
		x, y, ok := strings.Cut(offset, "+")
		if !ok {
			return CropWindow{}, fmt.Errorf("%w: %q: want WxH+X+Y", ErrInvalidCrop, s)
		}
		if c.StartX, err = strconv.Atoi(x); err != nil {
			return CropWindow{}, fmt.Errorf("%w: %q: x: %w", ErrInvalidCrop, s, err)
		}
		if c.StartY, err = strconv.Atoi(y); err != nil {
			return CropWindow{}, fmt.Errorf("%w: %q: y: %w", ErrInvalidCrop, s, err)
		}
	}
	if err := c.Validate(); err != nil {
		return CropWindow{}, err
	}
	return c, nil
}

// Frame is one decoded 8-bit grayscale image, stored row-major.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
}

// Row returns row y as a sub-slice of Pix.
func (f Frame) Row(y int) []byte {
	return f.Pix[y*f.Width : (y+1)*f.Width]
}

// At returns the pixel at column x, row y.
func (f Frame) At(x, y int) byte {
	return f.Pix[y*f.Width+x]
}

// Rows returns Height row slices sharing storage with Pix.
func (f Frame) Rows() [][]byte {
	rows := make([][]byte, f.Height)
	for y := range rows {
		rows[y] = f.Row(y)
	}
	return rows
}

// Valid reports whether the pixel buffer matches the declared dimensions.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Width*f.Height
}
