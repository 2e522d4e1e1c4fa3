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

// Sensor registers shared by the HM01B0 and HM0360 register maps.
const (
	RegModelIDH         uint16 = 0x0000
	RegModelIDL         uint16 = 0x0001
	RegSiliconRev       uint16 = 0x0002
	RegFrameCountH      uint16 = 0x0005
	RegFrameCountL      uint16 = 0x0006
	RegPixelOrder       uint16 = 0x0007
	RegModeSelect       uint16 = 0x0100
	RegImageOrientation uint16 = 0x0101
	RegEmbeddedLineEn   uint16 = 0x0102
	RegSoftwareReset    uint16 = 0x0103
	RegCommandUpdate    uint16 = 0x0104
	RegIntegrationH     uint16 = 0x0202
	RegIntegrationL     uint16 = 0x0203
	RegAnalogGain       uint16 = 0x0205
	RegDigitalGainH     uint16 = 0x020E
	RegDigitalGainL     uint16 = 0x020F
	RegPLL1Config       uint16 = 0x0300
)

// HM01B0 only
const (
	RegAEControl uint16 = 0x2100
)

// Model IDs reported in RegModelIDH/RegModelIDL
const (
	ModelIDHM01B0 uint16 = 0x01B0
	ModelIDHM0360 uint16 = 0x0360
)

// Register values
const (
	SoftwareResetAssert  uint8 = 0xFF
	SoftwareResetRelease uint8 = 0x00
	CommandUpdateLatch   uint8 = 0x01
	MaxAnalogGain        uint8 = 0x0F
)
