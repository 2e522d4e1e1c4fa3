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

import (
	"fmt"
	"math"

	"github.com/ZaparooProject/go-serialcam/frame"
)

// State is the host's record of how the board is configured. The board
// never reports its configuration back, so this is the only copy.
type State struct {
	Crop    frame.CropWindow
	Sensor  Sensor
	Packing bool
	Halted  bool
}

// DefaultState matches the board's power-on configuration.
func DefaultState() State {
	return State{
		Sensor:  HM01B0,
		Packing: true,
		Halted:  true,
		Crop:    frame.CropWindow{StartX: 2, StartY: 2, Width: 320, Height: 240},
	}
}

// I2CAddress returns the peripheral address register writes go to.
func (s State) I2CAddress() uint8 {
	return s.Sensor.I2CAddress()
}

// DCMICrop converts a pixel crop into DCMI units. With packing enabled every
// pixel takes two DCMI clocks, so the horizontal origin and width double.
func DCMICrop(crop frame.CropWindow, packing bool) (SetCrop, error) {
	if err := crop.Validate(); err != nil {
		return SetCrop{}, err
	}
	x, w := crop.StartX, crop.Width
	if packing {
		x, w = 2*x, 2*w
	}
	for _, v := range []int{x, crop.StartY, w, crop.Height} {
		if v > math.MaxUint16 {
			return SetCrop{}, fmt.Errorf("%w: %s exceeds DCMI range", ErrInvalidCrop, crop)
		}
	}
	return SetCrop{
		StartX: uint16(x),
		StartY: uint16(crop.StartY),
		LenX:   uint16(w),
		LenY:   uint16(crop.Height),
	}, nil
}

// Encoder turns configuration intents into wire bytes. It holds no state of
// its own: every operation takes the current State and returns the next one
// along with the bytes that move the board there. On error the input state
// is returned unchanged and no bytes are produced. The zero value is ready
// to use.
type Encoder struct{}

// SelectSensor switches sensors and sets packing for the new sensor in the
// same step. DCMI should be halted first.
func (Encoder) SelectSensor(st State, sensor Sensor) (State, []byte, error) {
	if !sensor.Valid() {
		return st, nil, fmt.Errorf("%w: %d", ErrUnknownSensor, int32(sensor))
	}
	wire, err := EncodeAll(
		SensorSelect{Sensor: sensor},
		SetPacking{Pack: sensor.PacksPixels()},
	)
	if err != nil {
		return st, nil, err
	}
	st.Sensor = sensor
	st.Packing = sensor.PacksPixels()
	return st, wire, nil
}

// SetCrop sets the capture window in pixels. State keeps the pixel crop;
// only the wire message is scaled for packing.
func (Encoder) SetCrop(st State, crop frame.CropWindow) (State, []byte, error) {
	msg, err := DCMICrop(crop, st.Packing)
	if err != nil {
		return st, nil, err
	}
	wire, err := Encode(msg)
	if err != nil {
		return st, nil, err
	}
	st.Crop = crop
	return st, wire, nil
}

// SetDcmiHalted halts or resumes the DCMI stream.
func (Encoder) SetDcmiHalted(st State, halt bool) (State, []byte, error) {
	wire, err := Encode(DcmiHalt{Halt: halt})
	if err != nil {
		return st, nil, err
	}
	st.Halted = halt
	return st, wire, nil
}

// WriteRegister writes one register on the currently selected sensor.
func (Encoder) WriteRegister(st State, reg uint16, value uint8) (State, []byte, error) {
	wire, err := Encode(I2cRegWrite{Address: st.I2CAddress(), Register: reg, Value: value})
	if err != nil {
		return st, nil, err
	}
	return st, wire, nil
}

// regValue is one register assignment of a sensor preset.
type regValue struct {
	reg   uint16
	value uint8
}

// preset encodes register writes from the HM01B0 register map. Other sensors
// have no preset table, so nothing is produced for them.
func preset(st State, writes ...regValue) (State, []byte, error) {
	if st.Sensor != HM01B0 {
		return st, nil, nil
	}
	cmds := make([]Command, len(writes))
	for i, w := range writes {
		cmds[i] = I2cRegWrite{Address: st.I2CAddress(), Register: w.reg, Value: w.value}
	}
	wire, err := EncodeAll(cmds...)
	if err != nil {
		return st, nil, err
	}
	return st, wire, nil
}

// EnableAutoExposure turns on the HM01B0 auto exposure loop.
func (Encoder) EnableAutoExposure(st State) (State, []byte, error) {
	return preset(st, regValue{RegAEControl, 1})
}

// DisableAutoExposure turns off the HM01B0 auto exposure loop.
func (Encoder) DisableAutoExposure(st State) (State, []byte, error) {
	return preset(st, regValue{RegAEControl, 0})
}

// SetAnalogGain sets the HM01B0 analog gain step, 0 through MaxAnalogGain.
func (Encoder) SetAnalogGain(st State, gain uint8) (State, []byte, error) {
	if gain > MaxAnalogGain {
		return st, nil, fmt.Errorf("%w: analog gain %d > %d", ErrGainOutOfRange, gain, MaxAnalogGain)
	}
	return preset(st, regValue{RegAnalogGain, gain << 4})
}

// SetDigitalGain sets the HM01B0 digital gain. The top two bits go to the
// high register and the low six bits to bits 7:2 of the low register.
func (Encoder) SetDigitalGain(st State, gain uint8) (State, []byte, error) {
	return preset(st,
		regValue{RegDigitalGainH, (gain >> 6) & 0x03},
		regValue{RegDigitalGainL, (gain & 0x3F) << 2},
	)
}

// ForceCommandUpdate latches pending HM01B0 register writes.
func (Encoder) ForceCommandUpdate(st State) (State, []byte, error) {
	return preset(st, regValue{RegCommandUpdate, CommandUpdateLatch})
}

// SetExposure is accepted for interface compatibility but neither sensor
// has a manual exposure preset yet, so nothing is sent.
func (Encoder) SetExposure(st State, _ uint16) (State, []byte, error) {
	return st, nil, nil
}
