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

//nolint:paralleltest // Tests mutate package-level listBusesFn and openBusFn
package i2c

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/ZaparooProject/go-serialcam/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func stubBuses(t *testing.T, buses map[string]i2c.BusCloser) {
	t.Helper()
	origList, origOpen := listBusesFn, openBusFn
	t.Cleanup(func() { listBusesFn, openBusFn = origList, origOpen })

	listBusesFn = func() ([]string, error) {
		names := make([]string, 0, len(buses))
		for name := range buses {
			names = append(names, name)
		}
		return names, nil
	}
	openBusFn = func(name string) (i2c.BusCloser, error) {
		bus, ok := buses[name]
		if !ok {
			return nil, errors.New("no such bus")
		}
		return bus, nil
	}
}

func TestDetect_FindsHM0360(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("I2C detection is Linux only")
	}

	stubBuses(t, map[string]i2c.BusCloser{
		"/dev/i2c-1": &i2ctest.Playback{
			Ops: []i2ctest.IO{
				// No HM01B0 at 0x24: the first read fails and the bus moves on.
				{Addr: 0x35, W: []byte{0x00, 0x00}, R: []byte{0x03}},
				{Addr: 0x35, W: []byte{0x00, 0x01}, R: []byte{0x60}},
			},
			DontPanic: true,
		},
	})

	opts := detection.DefaultOptions()
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/i2c-1:0x35", devices[0].Path)
	assert.Equal(t, "HM0360", devices[0].Name)
	assert.Equal(t, detection.High, devices[0].Confidence)
}

func TestDetect_PassiveNeverOpensBus(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("I2C detection is Linux only")
	}

	stubBuses(t, nil)
	openBusFn = func(string) (i2c.BusCloser, error) {
		t.Fatal("bus opened in passive mode")
		return nil, nil
	}

	opts := detection.DefaultOptions()
	opts.Mode = detection.Passive
	_, err := New().Detect(context.Background(), &opts)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}
