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

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_GoldenBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cmd  Command
		name string
		want []byte
	}{
		{
			name: "halt",
			cmd:  DcmiHalt{Halt: true},
			want: []byte{0x12, 0x04, 0x1a, 0x02, 0x08, 0x01},
		},
		{
			name: "resume omits false flag",
			cmd:  DcmiHalt{Halt: false},
			want: []byte{0x12, 0x02, 0x1a, 0x00},
		},
		{
			name: "packing on",
			cmd:  SetPacking{Pack: true},
			want: []byte{0x12, 0x04, 0x12, 0x02, 0x08, 0x01},
		},
		{
			name: "select HM01B0 keeps empty sub-message",
			cmd:  SensorSelect{Sensor: HM01B0},
			want: []byte{0x0a, 0x02, 0x0a, 0x00},
		},
		{
			name: "select HM0360",
			cmd:  SensorSelect{Sensor: HM0360},
			want: []byte{0x0a, 0x04, 0x0a, 0x02, 0x08, 0x01},
		},
		{
			name: "register write",
			cmd:  I2cRegWrite{Address: 0x24, Register: 0x0104, Value: 1},
			want: []byte{0x0a, 0x09, 0x12, 0x07, 0x08, 0x24, 0x10, 0x84, 0x02, 0x18, 0x01},
		},
		{
			name: "packed default crop",
			cmd:  SetCrop{StartX: 4, StartY: 2, LenX: 640, LenY: 240},
			want: []byte{
				0x12, 0x0c, 0x0a, 0x0a,
				0x08, 0x04, 0x10, 0x02, 0x18, 0x80, 0x05, 0x20, 0xf0, 0x01,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Marshal(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := Unmarshal(got)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, back)
		})
	}
}

func TestMarshal_RejectsUnknownSensor(t *testing.T) {
	t.Parallel()

	_, err := Marshal(SensorSelect{Sensor: Sensor(7)})
	assert.ErrorIs(t, err, ErrUnknownSensor)
}

func TestUnmarshal_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: nil},
		{name: "truncated key", body: []byte{0x80}},
		{name: "length past end", body: []byte{0x12, 0x05, 0x1a}},
		{name: "scalar where message expected", body: []byte{0x10, 0x01}},
		{name: "unknown wire type", body: []byte{0x0f}},
		{name: "empty management", body: []byte{0x0a, 0x00}},
		{name: "unknown sensor", body: []byte{0x0a, 0x04, 0x0a, 0x02, 0x08, 0x05}},
		{name: "value out of range", body: []byte{0x0a, 0x05, 0x12, 0x03, 0x18, 0x80, 0x02}},
		{name: "address out of range", body: []byte{0x0a, 0x05, 0x12, 0x03, 0x08, 0x80, 0x01}},
		{name: "empty dcmi request", body: []byte{0x12, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Unmarshal(tt.body)
			assert.Error(t, err)
		})
	}
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	t.Parallel()

	// dcmi_halt with an extra fixed32 field 9 and varint field 7.
	body := []byte{0x12, 0x0b, 0x4d, 0x01, 0x02, 0x03, 0x04, 0x38, 0x01, 0x1a, 0x02, 0x08, 0x01}

	cmd, err := Unmarshal(body)
	require.NoError(t, err)
	assert.Equal(t, DcmiHalt{Halt: true}, cmd)
}

func TestMarshal_MessagesRoundTripThroughProto(t *testing.T) {
	t.Parallel()

	body, err := Marshal(SetCrop{StartX: 4, StartY: 2, LenX: 640, LenY: 240})
	require.NoError(t, err)

	var req cameraRequest
	require.NoError(t, proto.Unmarshal(body, &req))
	dcmi, ok := req.Request.(*cameraRequestDcmi)
	require.True(t, ok)
	crop, ok := dcmi.DcmiConfig.Request.(*readCrop)
	require.True(t, ok)
	assert.Equal(t, &setCropRequest{StartX: 4, StartY: 2, LenX: 640, LenY: 240}, crop.Crop)
}
