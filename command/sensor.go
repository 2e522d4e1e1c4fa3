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
	"strings"
)

// Sensor identifies one of the image sensors the board can drive. The
// numeric values are the board's sensor_select enum.
type Sensor int32

// Supported sensors
const (
	HM01B0 Sensor = 0
	HM0360 Sensor = 1
)

// 7-bit I2C peripheral addresses
const (
	HM01B0Address uint8 = 0x24
	HM0360Address uint8 = 0x35
)

func (s Sensor) String() string {
	switch s {
	case HM01B0:
		return "HM01B0"
	case HM0360:
		return "HM0360"
	default:
		return fmt.Sprintf("Sensor(%d)", int32(s))
	}
}

// Valid reports whether s is a sensor the board knows.
func (s Sensor) Valid() bool {
	return s == HM01B0 || s == HM0360
}

// I2CAddress returns the sensor's peripheral address on the board's I2C bus.
func (s Sensor) I2CAddress() uint8 {
	if s == HM01B0 {
		return HM01B0Address
	}
	return HM0360Address
}

// PacksPixels reports whether the sensor's DCMI output needs packing. The
// HM01B0 clocks each pixel out over two DCMI cycles.
func (s Sensor) PacksPixels() bool {
	return s == HM01B0
}

// ParseSensor accepts "hm01b0" or "hm0360" in any case.
func ParseSensor(name string) (Sensor, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "HM01B0":
		return HM01B0, nil
	case "HM0360":
		return HM0360, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSensor, name)
	}
}
