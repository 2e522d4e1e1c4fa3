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

// Package i2c drives a Himax sensor's registers directly over a host I2C bus,
// for bring-up on boards whose firmware does not yet stream.
package i2c

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/command"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Max clock frequency (400 kHz fast mode, supported by both sensors).
	maxClockFreq = 400 * physic.KiloHertz

	// MODE_SELECT values
	modeStandby   = 0x00
	modeStreaming = 0x01
)

// ErrWrongSensor is returned by Probe when the model ID does not match.
var ErrWrongSensor = errors.New("unexpected sensor model")

// SensorBus reads and writes 8-bit registers at 16-bit addresses.
type SensorBus struct {
	dev     *i2c.Dev
	bus     i2c.Bus
	busName string
	sensor  command.Sensor
}

// parseI2CPath extracts the bus path from a composite path.
// Accepts "/dev/i2c-1:0x24" or a bare "/dev/i2c-1".
func parseI2CPath(path string) string {
	bus, _, _ := strings.Cut(path, ":")
	return bus
}

// Open opens busName and addresses sensor at its fixed 7-bit address.
func Open(busName string, sensor command.Sensor) (*SensorBus, error) {
	if !sensor.Valid() {
		return nil, fmt.Errorf("%w: %w", serialcam.ErrInvalidParameter, command.ErrUnknownSensor)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(parseI2CPath(busName))
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed

	sb := New(bus, sensor)
	sb.busName = busName
	return sb, nil
}

// New addresses sensor on an already open bus.
func New(bus i2c.Bus, sensor command.Sensor) *SensorBus {
	return &SensorBus{
		dev:     &i2c.Dev{Addr: uint16(sensor.I2CAddress()), Bus: bus},
		bus:     bus,
		busName: bus.String(),
		sensor:  sensor,
	}
}

// Sensor returns the addressed sensor
func (s *SensorBus) Sensor() command.Sensor {
	return s.sensor
}

// WriteRegister writes value to reg.
func (s *SensorBus) WriteRegister(reg uint16, value uint8) error {
	w := []byte{byte(reg >> 8), byte(reg), value}
	if err := s.dev.Tx(w, nil); err != nil {
		return s.busError("write", fmt.Errorf("register 0x%04X: %w", reg, err))
	}
	serialcam.Debugf("i2c %s: 0x%04X <- 0x%02X", s.sensor, reg, value)
	return nil
}

// ReadRegister reads reg using a repeated-start transaction.
func (s *SensorBus) ReadRegister(reg uint16) (uint8, error) {
	r := make([]byte, 1)
	if err := s.dev.Tx([]byte{byte(reg >> 8), byte(reg)}, r); err != nil {
		return 0, s.busError("read", fmt.Errorf("register 0x%04X: %w", reg, err))
	}
	return r[0], nil
}

// ModelID reads the 16-bit model identifier.
func (s *SensorBus) ModelID() (uint16, error) {
	hi, err := s.ReadRegister(command.RegModelIDH)
	if err != nil {
		return 0, err
	}
	lo, err := s.ReadRegister(command.RegModelIDL)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// Probe checks that the addressed device reports the expected model ID.
func (s *SensorBus) Probe() error {
	id, err := s.ModelID()
	if err != nil {
		return err
	}
	want := command.ModelIDHM01B0
	if s.sensor == command.HM0360 {
		want = command.ModelIDHM0360
	}
	if id != want {
		return fmt.Errorf("%w: %s expects 0x%04X, got 0x%04X", ErrWrongSensor, s.sensor, want, id)
	}
	return nil
}

// SoftReset pulses the software reset register.
func (s *SensorBus) SoftReset() error {
	if err := s.WriteRegister(command.RegSoftwareReset, command.SoftwareResetAssert); err != nil {
		return err
	}
	return s.WriteRegister(command.RegSoftwareReset, command.SoftwareResetRelease)
}

// SetStreaming switches MODE_SELECT between streaming and standby.
func (s *SensorBus) SetStreaming(on bool) error {
	mode := uint8(modeStandby)
	if on {
		mode = modeStreaming
	}
	return s.WriteRegister(command.RegModeSelect, mode)
}

// Apply writes a sequence of register assignments in order, then latches
// them with a command update.
func (s *SensorBus) Apply(writes []serialcam.RegisterWrite) error {
	for _, w := range writes {
		if err := s.WriteRegister(w.Register, w.Value); err != nil {
			return err
		}
	}
	return s.WriteRegister(command.RegCommandUpdate, command.CommandUpdateLatch)
}

// Close releases the bus if it owns an OS handle.
func (s *SensorBus) Close() error {
	if c, ok := s.bus.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close I2C bus %s: %w", s.busName, err)
		}
	}
	return nil
}

func (s *SensorBus) busError(op string, err error) error {
	return serialcam.NewTransportError(op, s.busName, err, serialcam.ErrorTypeTransient)
}
