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

// Package testing provides an in-memory camera bridge board and link
// wrappers for exercising sessions without hardware.
package testing

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/frame"
	"github.com/ZaparooProject/go-serialcam/internal/syncutil"
)

// PatternFunc returns the pixel at (x, y) of frame number seq.
type PatternFunc func(seq, x, y int) byte

// GradientPattern shifts a diagonal gradient by one level per frame.
func GradientPattern(seq, x, y int) byte {
	return byte(seq + x + y)
}

// VirtualBoard emulates the bridge firmware. It decodes command frames
// written to it, tracks the DCMI and sensor state they produce, and streams
// preamble-delimited frames whenever the DCMI is running.
type VirtualBoard struct {
	pattern   PatternFunc
	readErr   error
	registers map[uint8]map[uint16]uint8
	inbound   []byte
	outbound  bytes.Buffer
	garbage   []byte
	commands  []command.Command
	preamble  []byte
	crop      command.SetCrop
	seq       int
	maxFrames int
	mu        syncutil.Mutex
	sensor    command.Sensor
	packing   bool
	halted    bool
	closed    bool
	malformed int
}

// NewVirtualBoard returns a halted board in the power-on configuration.
func NewVirtualBoard() *VirtualBoard {
	st := command.DefaultState()
	crop, err := command.DCMICrop(st.Crop, st.Packing)
	if err != nil {
		panic(err)
	}
	return &VirtualBoard{
		pattern:   GradientPattern,
		registers: make(map[uint8]map[uint16]uint8),
		preamble:  frame.Preamble[:],
		crop:      crop,
		sensor:    st.Sensor,
		packing:   st.Packing,
		halted:    st.Halted,
		maxFrames: -1,
	}
}

// SetPattern replaces the pixel generator.
func (b *VirtualBoard) SetPattern(p PatternFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pattern = p
}

// SetPreambleLen changes the marker length emitted before each frame.
func (b *VirtualBoard) SetPreambleLen(n int) error {
	p, err := frame.PreambleOfLength(n)
	if err != nil {
		return fmt.Errorf("virtual board: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preamble = p
	return nil
}

// SetMaxFrames stops streaming after n frames. Negative means unlimited.
func (b *VirtualBoard) SetMaxFrames(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxFrames = n
}

// InjectGarbage queues bytes to be sent before the next frame.
func (b *VirtualBoard) InjectGarbage(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.garbage = append(b.garbage, p...)
}

// Disconnect makes every later call fail as if the USB device was unplugged.
func (b *VirtualBoard) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErr = serialcam.NewDeviceGoneError("read", b.portNameLocked(), io.ErrUnexpectedEOF)
}

// Available implements serialcam.SerialLink. While streaming, an empty
// output buffer is refilled with the next frame.
func (b *VirtualBoard) Available() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return 0, err
	}
	if b.outbound.Len() == 0 {
		b.emitLocked()
	}
	return b.outbound.Len(), nil
}

// Read implements serialcam.SerialLink.
func (b *VirtualBoard) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return 0, err
	}
	if b.outbound.Len() == 0 {
		return 0, nil
	}
	n, _ := b.outbound.Read(p)
	return n, nil
}

// Write implements serialcam.SerialLink. Complete command frames are
// applied immediately. A trailing partial frame waits for more bytes.
func (b *VirtualBoard) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return 0, err
	}
	b.inbound = append(b.inbound, p...)
	for {
		body, rest, ok := command.Split(b.inbound)
		if !ok {
			break
		}
		b.inbound = rest
		cmd, err := command.Unmarshal(body)
		if err != nil {
			b.malformed++
			serialcam.Debugf("virtual board: dropping malformed body % X: %v", body, err)
			continue
		}
		b.applyLocked(cmd)
	}
	return len(p), nil
}

// Close implements io.Closer.
func (b *VirtualBoard) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// PortName implements serialcam.PortNamer.
func (b *VirtualBoard) PortName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.portNameLocked()
}

// Commands returns every command applied so far.
func (b *VirtualBoard) Commands() []command.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]command.Command(nil), b.commands...)
}

// Register returns the last value written to reg on the device at addr.
func (b *VirtualBoard) Register(addr uint8, reg uint16) (uint8, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.registers[addr][reg]
	return v, ok
}

// Halted reports whether the DCMI is stopped.
func (b *VirtualBoard) Halted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.halted
}

// Sensor returns the currently selected sensor.
func (b *VirtualBoard) Sensor() command.Sensor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sensor
}

// HostCrop returns the frame window as the host sees it, undoing the
// horizontal doubling applied when pixels are packed.
func (b *VirtualBoard) HostCrop() frame.CropWindow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hostCropLocked()
}

// FramesSent returns how many frames have been emitted.
func (b *VirtualBoard) FramesSent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Malformed returns how many command bodies failed to decode.
func (b *VirtualBoard) Malformed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.malformed
}

// ExpectedFrame renders frame seq the way the board would send it.
func (b *VirtualBoard) ExpectedFrame(seq int) frame.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	crop := b.hostCropLocked()
	return frame.Frame{Pix: b.renderLocked(seq, crop), Width: crop.Width, Height: crop.Height}
}

func (b *VirtualBoard) portNameLocked() string {
	return "virtual"
}

func (b *VirtualBoard) checkLocked() error {
	if b.closed {
		return serialcam.ErrTransportClosed
	}
	return b.readErr
}

func (b *VirtualBoard) applyLocked(cmd command.Command) {
	b.commands = append(b.commands, cmd)
	switch c := cmd.(type) {
	case command.DcmiHalt:
		b.halted = c.Halt
	case command.SensorSelect:
		b.sensor = c.Sensor
	case command.SetPacking:
		b.packing = c.Pack
	case command.SetCrop:
		b.crop = c
	case command.I2cRegWrite:
		regs, ok := b.registers[c.Address]
		if !ok {
			regs = make(map[uint16]uint8)
			b.registers[c.Address] = regs
		}
		regs[c.Register] = c.Value
	}
}

func (b *VirtualBoard) hostCropLocked() frame.CropWindow {
	crop := frame.CropWindow{
		StartX: int(b.crop.StartX),
		StartY: int(b.crop.StartY),
		Width:  int(b.crop.LenX),
		Height: int(b.crop.LenY),
	}
	if b.packing {
		crop.StartX /= 2
		crop.Width /= 2
	}
	return crop
}

func (b *VirtualBoard) renderLocked(seq int, crop frame.CropWindow) []byte {
	pix := make([]byte, crop.Area())
	for y := range crop.Height {
		for x := range crop.Width {
			pix[y*crop.Width+x] = b.pattern(seq, x, y)
		}
	}
	return pix
}

func (b *VirtualBoard) emitLocked() {
	if len(b.garbage) > 0 {
		b.outbound.Write(b.garbage)
		b.garbage = nil
	}
	if b.halted || b.maxFrames == 0 || (b.maxFrames > 0 && b.seq >= b.maxFrames) {
		return
	}
	crop := b.hostCropLocked()
	b.outbound.Write(b.preamble)
	b.outbound.Write(b.renderLocked(b.seq, crop))
	b.seq++
}
