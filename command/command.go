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

package command

import "fmt"

// Command is one outbound request to the board. The set of implementations
// is closed: SensorSelect, SetPacking, SetCrop, DcmiHalt and I2cRegWrite.
type Command interface {
	fmt.Stringer
	isCommand()
}

// SensorSelect switches the board to another image sensor. DCMI must be
// halted first.
type SensorSelect struct {
	Sensor Sensor
}

// SetPacking toggles DCMI pixel packing.
type SetPacking struct {
	Pack bool
}

// SetCrop sets the DCMI capture window. Values are in DCMI units, so the
// horizontal fields are already doubled when packing is enabled.
type SetCrop struct {
	StartX uint16
	StartY uint16
	LenX   uint16
	LenY   uint16
}

// DcmiHalt stops (Halt true) or starts the DCMI capture stream.
type DcmiHalt struct {
	Halt bool
}

// I2cRegWrite writes one 8-bit sensor register through the board.
type I2cRegWrite struct {
	Register uint16
	Address  uint8
	Value    uint8
}

func (SensorSelect) isCommand() {}
func (SetPacking) isCommand()   {}
func (SetCrop) isCommand()      {}
func (DcmiHalt) isCommand()     {}
func (I2cRegWrite) isCommand()  {}

func (c SensorSelect) String() string {
	return fmt.Sprintf("SensorSelect(%s)", c.Sensor)
}

func (c SetPacking) String() string {
	return fmt.Sprintf("SetPacking(%t)", c.Pack)
}

func (c SetCrop) String() string {
	return fmt.Sprintf("SetCrop(x=%d y=%d w=%d h=%d)", c.StartX, c.StartY, c.LenX, c.LenY)
}

func (c DcmiHalt) String() string {
	return fmt.Sprintf("DcmiHalt(%t)", c.Halt)
}

func (c I2cRegWrite) String() string {
	return fmt.Sprintf("I2cRegWrite(addr=0x%02X reg=0x%04X val=0x%02X)", c.Address, c.Register, c.Value)
}
