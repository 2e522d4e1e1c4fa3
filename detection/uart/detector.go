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

package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/detection"
	"github.com/ZaparooProject/go-serialcam/frame"
	"github.com/ZaparooProject/go-serialcam/transport/uart"
	"go.bug.st/serial/enumerator"
)

const pollInterval = 10 * time.Millisecond

// detector implements the Detector interface for serial camera bridges.
type detector struct{}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Hooks replaced in tests.
var (
	listPortsFn   = listPorts
	probeDeviceFn = probeDevice
)

// serialPort represents a serial port with metadata
type serialPort struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

// listPorts enumerates serial ports with their USB descriptors.
func listPorts() ([]serialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]serialPort, 0, len(details))
	for _, d := range details {
		port := serialPort{Path: d.Name, IsUSB: d.IsUSB}
		if d.IsUSB {
			port.VIDPID = detection.FormatVIDPID(d.VID, d.PID)
			port.Product = d.Product
			port.SerialNumber = d.SerialNumber
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// Detect searches for camera bridges on serial ports
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPortsFn()
	if err != nil {
		return nil, err
	}

	var devices []detection.DeviceInfo
	for i := range ports {
		select {
		case <-ctx.Done():
			return devices, nil
		default:
		}

		if device, ok := d.processPort(ctx, &ports[i], opts); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// processPort decides whether to report a port, probing it if the mode allows.
func (*detector) processPort(ctx context.Context, port *serialPort,
	opts *detection.Options,
) (detection.DeviceInfo, bool) {
	if port.VIDPID != "" && detection.IsBlocked(port.VIDPID, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}
	if detection.IsPathIgnored(port.Path, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	likely := isLikelyCamera(port, opts)
	var confidence detection.Confidence
	switch {
	case likely:
		confidence = detection.Medium
	case port.IsUSB:
		confidence = detection.Low
	default:
		// Built-in UARTs are only worth opening in Full mode.
		if opts.Mode != detection.Full {
			return detection.DeviceInfo{}, false
		}
		confidence = detection.Low
	}

	shouldProbe := opts.Mode == detection.Full || (opts.Mode == detection.Safe && port.IsUSB)
	if opts.Mode == detection.Passive && !likely {
		return detection.DeviceInfo{}, false
	}

	if shouldProbe {
		timeout := opts.ProbeTimeout
		if timeout <= 0 {
			timeout = detection.DefaultOptions().ProbeTimeout
		}
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		found := probeDeviceFn(probeCtx, port.Path)
		cancel()

		if !found {
			return detection.DeviceInfo{}, false
		}
		confidence = detection.High
	}

	return createDeviceInfo(port, confidence), true
}

func createDeviceInfo(port *serialPort, confidence detection.Confidence) detection.DeviceInfo {
	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Path,
		Name:       port.Product,
		Confidence: confidence,
		Metadata:   make(map[string]string),
	}
	if device.Name == "" {
		device.Name = port.Path
	}
	if port.VIDPID != "" {
		device.Metadata["vidpid"] = port.VIDPID
	}
	if port.Product != "" {
		device.Metadata["product"] = port.Product
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}
	return device
}

// isLikelyCamera checks descriptors against known boards and product strings.
func isLikelyCamera(port *serialPort, opts *detection.Options) bool {
	known := opts.KnownBoards
	if len(known) == 0 {
		known = detection.DefaultKnownBoards()
	}
	if detection.IsKnownBoard(port.VIDPID, known) {
		return true
	}

	lowerProduct := strings.ToLower(port.Product)
	for _, keyword := range []string{"himax", "hm01b0", "hm0360", "camera"} {
		if strings.Contains(lowerProduct, keyword) {
			return true
		}
	}
	return false
}

// probeDevice opens path and listens for a frame preamble.
//
// Only one attempt is made per port. Retrying an open against a port that
// is not a camera only delays the scan.
func probeDevice(ctx context.Context, path string) bool {
	link, err := uart.Open(path, uart.DefaultConfig())
	if err != nil {
		serialcam.Debugf("probe %s: %v", path, err)
		return false
	}
	defer func() { _ = link.Close() }()

	return listenForPreamble(ctx, link)
}

// listenForPreamble resumes streaming on link and reports whether a preamble
// arrives before ctx ends. The camera is halted again before returning.
func listenForPreamble(ctx context.Context, link serialcam.SerialLink) bool {
	resume, err := command.Encode(command.DcmiHalt{Halt: false})
	if err != nil {
		return false
	}
	halt, err := command.Encode(command.DcmiHalt{Halt: true})
	if err != nil {
		return false
	}

	if _, err := link.Write(resume); err != nil {
		return false
	}
	defer func() { _, _ = link.Write(halt) }()

	syncer := frame.NewSynchronizer()
	buf := make([]byte, 4096)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		n, err := link.Available()
		if err != nil {
			return false
		}
		if n > 0 {
			r, err := link.Read(buf[:min(n, len(buf))])
			if err != nil {
				return false
			}
			syncer.Ingest(buf[:r])
			syncer.Resync()
			if syncer.Buffered() >= syncer.PreambleLen() {
				return true
			}
			continue
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
