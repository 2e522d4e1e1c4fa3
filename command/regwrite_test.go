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
)

func TestParseRegisterWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		reg     uint16
		value   uint8
		wantErr bool
	}{
		{name: "plain hex", input: "0104:01", reg: 0x0104, value: 0x01},
		{name: "prefixed", input: "0x2100:0x1", reg: 0x2100, value: 0x01},
		{name: "whitespace", input: "  205 : f0 ", reg: 0x0205, value: 0xF0},
		{name: "upper prefix", input: "0X0F:0XFF", reg: 0x000F, value: 0xFF},
		{name: "missing colon", input: "0104", wantErr: true},
		{name: "empty register", input: ":01", wantErr: true},
		{name: "empty value", input: "0104:", wantErr: true},
		{name: "register too wide", input: "10000:01", wantErr: true},
		{name: "value too wide", input: "0104:100", wantErr: true},
		{name: "not hex", input: "zz:01", wantErr: true},
		{name: "extra colon", input: "01:02:03", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg, value, err := ParseRegisterWrite(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedRegisterWrite)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.reg, reg)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestParseSensor(t *testing.T) {
	t.Parallel()

	s, err := ParseSensor("hm0360")
	require.NoError(t, err)
	assert.Equal(t, HM0360, s)

	s, err = ParseSensor(" HM01B0 ")
	require.NoError(t, err)
	assert.Equal(t, HM01B0, s)

	_, err = ParseSensor("ov7670")
	assert.ErrorIs(t, err, ErrUnknownSensor)
}

func TestSensor_Addressing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(0x24), HM01B0.I2CAddress())
	assert.Equal(t, uint8(0x35), HM0360.I2CAddress())
	assert.True(t, HM01B0.PacksPixels())
	assert.False(t, HM0360.PacksPixels())
	assert.Equal(t, "HM0360", HM0360.String())
	assert.Equal(t, "Sensor(9)", Sensor(9).String())
}
