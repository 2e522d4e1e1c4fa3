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

package i2c

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/detection"
	sensorbus "github.com/ZaparooProject/go-serialcam/transport/i2c"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// detector finds Himax sensors wired directly to a host I2C bus.
type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "i2c"
}

// Hooks replaced in tests.
var (
	listBusesFn = listBuses
	openBusFn   = openBus
)

func listBuses() ([]string, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	refs := i2creg.All()
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names, nil
}

func openBus(name string) (i2c.BusCloser, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", name, err)
	}
	return bus, nil
}

// Detect reads the model ID registers at each sensor address on every bus.
// Passive mode never touches the bus, so it reports nothing.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}
	if opts.Mode == detection.Passive {
		return nil, detection.ErrNoDevicesFound
	}

	buses, err := listBusesFn()
	if err != nil {
		return nil, err
	}

	var devices []detection.DeviceInfo
	for _, name := range buses {
		if ctx.Err() != nil {
			break
		}
		if detection.IsPathIgnored(name, opts.IgnorePaths) {
			continue
		}
		found, err := probeBus(name)
		if err != nil {
			serialcam.Debugf("i2c detect %s: %v", name, err)
			continue
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func probeBus(name string) ([]detection.DeviceInfo, error) {
	bus, err := openBusFn(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = bus.Close() }()

	var devices []detection.DeviceInfo
	for _, sensor := range []command.Sensor{command.HM01B0, command.HM0360} {
		sb := sensorbus.New(bus, sensor)
		err := sb.Probe()
		switch {
		case err == nil:
			devices = append(devices, detection.DeviceInfo{
				Transport:  "i2c",
				Path:       fmt.Sprintf("%s:0x%02X", name, sensor.I2CAddress()),
				Name:       sensor.String(),
				Confidence: detection.High,
				Metadata:   map[string]string{"sensor": sensor.String()},
			})
		case errors.Is(err, sensorbus.ErrWrongSensor):
			// Something answered at the address but is not this sensor.
			serialcam.Debugf("i2c detect %s: %v", name, err)
		}
	}
	return devices, nil
}
