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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-serialcam/frame"
)

func decodeAll(t *testing.T, wire []byte) []Command {
	t.Helper()

	cmds, rest, err := Decode(wire)
	require.NoError(t, err)
	require.Empty(t, rest)
	return cmds
}

func TestDefaultState(t *testing.T) {
	t.Parallel()

	st := DefaultState()
	assert.Equal(t, HM01B0, st.Sensor)
	assert.True(t, st.Packing)
	assert.True(t, st.Halted)
	assert.Equal(t, frame.CropWindow{StartX: 2, StartY: 2, Width: 320, Height: 240}, st.Crop)
}

func TestEncoder_SelectSensorSetsPacking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sensor  Sensor
		packing bool
	}{
		{sensor: HM01B0, packing: true},
		{sensor: HM0360, packing: false},
	}

	for _, tt := range tests {
		t.Run(tt.sensor.String(), func(t *testing.T) {
			t.Parallel()

			var enc Encoder
			st, wire, err := enc.SelectSensor(DefaultState(), tt.sensor)
			require.NoError(t, err)

			assert.Equal(t, tt.sensor, st.Sensor)
			assert.Equal(t, tt.packing, st.Packing)
			assert.Equal(t, []Command{
				SensorSelect{Sensor: tt.sensor},
				SetPacking{Pack: tt.packing},
			}, decodeAll(t, wire))
		})
	}
}

func TestEncoder_SelectSensorInvalid(t *testing.T) {
	t.Parallel()

	var enc Encoder
	in := DefaultState()
	st, wire, err := enc.SelectSensor(in, Sensor(3))
	require.ErrorIs(t, err, ErrUnknownSensor)
	assert.Nil(t, wire)
	assert.Equal(t, in, st)
}

func TestEncoder_CropScaling(t *testing.T) {
	t.Parallel()

	var enc Encoder
	crop := frame.CropWindow{StartX: 2, StartY: 2, Width: 320, Height: 240}

	st, _, err := enc.SelectSensor(DefaultState(), HM01B0)
	require.NoError(t, err)
	st, wire, err := enc.SetCrop(st, crop)
	require.NoError(t, err)
	assert.Equal(t, crop, st.Crop)
	assert.Equal(t, []Command{SetCrop{StartX: 4, StartY: 2, LenX: 640, LenY: 240}}, decodeAll(t, wire))

	st, _, err = enc.SelectSensor(st, HM0360)
	require.NoError(t, err)
	st, wire, err = enc.SetCrop(st, crop)
	require.NoError(t, err)
	assert.Equal(t, crop, st.Crop)
	assert.Equal(t, []Command{SetCrop{StartX: 2, StartY: 2, LenX: 320, LenY: 240}}, decodeAll(t, wire))
}

func TestEncoder_CropRejected(t *testing.T) {
	t.Parallel()

	var enc Encoder
	in := DefaultState()

	tests := []struct {
		name string
		crop frame.CropWindow
	}{
		{name: "zero width", crop: frame.CropWindow{Width: 0, Height: 10}},
		{name: "packed width overflows DCMI", crop: frame.CropWindow{Width: 40000, Height: 1}},
		{name: "height overflows DCMI", crop: frame.CropWindow{Width: 1, Height: 70000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st, wire, err := enc.SetCrop(in, tt.crop)
			require.ErrorIs(t, err, ErrInvalidCrop)
			assert.Nil(t, wire)
			assert.Equal(t, in, st)
		})
	}
}

func TestEncoder_WriteRegisterResolvesAddress(t *testing.T) {
	t.Parallel()

	var enc Encoder
	st := DefaultState()

	_, wire, err := enc.WriteRegister(st, 0x0104, 0x01)
	require.NoError(t, err)
	assert.Equal(t, []Command{I2cRegWrite{Address: 0x24, Register: 0x0104, Value: 0x01}}, decodeAll(t, wire))

	st.Sensor = HM0360
	_, wire, err = enc.WriteRegister(st, 0x0104, 0x01)
	require.NoError(t, err)
	assert.Equal(t, []Command{I2cRegWrite{Address: 0x35, Register: 0x0104, Value: 0x01}}, decodeAll(t, wire))
}

func TestEncoder_HaltToggle(t *testing.T) {
	t.Parallel()

	var enc Encoder
	st, wire, err := enc.SetDcmiHalted(DefaultState(), false)
	require.NoError(t, err)
	assert.False(t, st.Halted)
	assert.Equal(t, []Command{DcmiHalt{Halt: false}}, decodeAll(t, wire))

	st, wire, err = enc.SetDcmiHalted(st, true)
	require.NoError(t, err)
	assert.True(t, st.Halted)
	assert.Equal(t, []Command{DcmiHalt{Halt: true}}, decodeAll(t, wire))
}

func TestEncoder_Presets(t *testing.T) {
	t.Parallel()

	var enc Encoder
	write := func(reg uint16, v uint8) Command {
		return I2cRegWrite{Address: HM01B0Address, Register: reg, Value: v}
	}

	tests := []struct {
		run  func(State) (State, []byte, error)
		name string
		want []Command
	}{
		{
			name: "enable auto exposure",
			run:  enc.EnableAutoExposure,
			want: []Command{write(0x2100, 1)},
		},
		{
			name: "disable auto exposure",
			run:  enc.DisableAutoExposure,
			want: []Command{write(0x2100, 0)},
		},
		{
			name: "analog gain",
			run:  func(st State) (State, []byte, error) { return enc.SetAnalogGain(st, 3) },
			want: []Command{write(0x0205, 0x30)},
		},
		{
			name: "digital gain",
			run:  func(st State) (State, []byte, error) { return enc.SetDigitalGain(st, 0xC5) },
			want: []Command{write(0x020E, 0x03), write(0x020F, 0x14)},
		},
		{
			name: "force command update",
			run:  enc.ForceCommandUpdate,
			want: []Command{write(0x0104, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st, wire, err := tt.run(DefaultState())
			require.NoError(t, err)
			assert.Equal(t, DefaultState(), st)
			assert.Equal(t, tt.want, decodeAll(t, wire))

			hm0360 := DefaultState()
			hm0360.Sensor = HM0360
			hm0360.Packing = false
			st, wire, err = tt.run(hm0360)
			require.NoError(t, err)
			assert.Nil(t, wire)
			assert.Equal(t, hm0360, st)
		})
	}
}

func TestEncoder_AnalogGainRange(t *testing.T) {
	t.Parallel()

	var enc Encoder
	_, wire, err := enc.SetAnalogGain(DefaultState(), MaxAnalogGain+1)
	require.ErrorIs(t, err, ErrGainOutOfRange)
	assert.Nil(t, wire)
}

func TestEncoder_SetExposureSendsNothing(t *testing.T) {
	t.Parallel()

	var enc Encoder
	st, wire, err := enc.SetExposure(DefaultState(), 100)
	require.NoError(t, err)
	assert.Nil(t, wire)
	assert.Equal(t, DefaultState(), st)
}
