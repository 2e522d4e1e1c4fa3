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

package serialcam

import (
	"fmt"

	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/frame"
	"github.com/ZaparooProject/go-serialcam/telemetry"
)

// DefaultChunkSize is the most bytes Service reads per call.
const DefaultChunkSize = 4096

// Config holds session configuration options
type Config struct {
	// Telemetry controls throughput sampling
	Telemetry telemetry.Config
	// ChunkSize bounds the bytes read per Service call so that one call
	// cannot stall the caller's loop on a fast link
	ChunkSize int
	// PreambleLen is the number of marker bytes the firmware sends before
	// each frame. Stock firmware sends frame.PreambleLen; v1-0 builds that
	// send the full marker line need frame.MarkerLineLen.
	PreambleLen int
}

// DefaultConfig returns the default session configuration
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:   DefaultChunkSize,
		PreambleLen: frame.PreambleLen,
		Telemetry:   telemetry.DefaultConfig(),
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.PreambleLen < frame.SyncPrefixLen || c.PreambleLen > frame.MarkerLineLen {
		return fmt.Errorf("%w: preamble length %d not in [%d, %d]",
			ErrInvalidConfig, c.PreambleLen, frame.SyncPrefixLen, frame.MarkerLineLen)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// RegisterWrite is one raw sensor register assignment
type RegisterWrite struct {
	Register uint16
	Value    uint8
}

// SensorConfig describes a complete board setup applied by Session.Configure.
// Nil pointer fields leave the sensor's current setting alone.
type SensorConfig struct {
	AutoExposure *bool
	AnalogGain   *uint8
	DigitalGain  *uint8
	Crop         frame.CropWindow
	Registers    []RegisterWrite
	Sensor       command.Sensor
	// Stream resumes DCMI once configuration is done
	Stream bool
}

// DefaultSensorConfig mirrors the board's power-on setup and starts streaming
func DefaultSensorConfig() SensorConfig {
	st := command.DefaultState()
	return SensorConfig{
		Sensor: st.Sensor,
		Crop:   st.Crop,
		Stream: true,
	}
}

// Validate checks the parts of the configuration that can be checked
// without a sensor state.
func (c SensorConfig) Validate() error {
	if !c.Sensor.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrInvalidParameter, command.ErrUnknownSensor, int32(c.Sensor))
	}
	if err := c.Crop.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	if c.AnalogGain != nil && *c.AnalogGain > command.MaxAnalogGain {
		return fmt.Errorf("%w: %w: analog gain %d", ErrInvalidParameter, command.ErrGainOutOfRange, *c.AnalogGain)
	}
	return nil
}
