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
	"math"

	"github.com/golang/protobuf/proto"
)

// Marshal encodes cmd as a pb_camera_request body. Zero scalars are left
// out and set sub-messages are always written, as proto3 requires.
func Marshal(cmd Command) ([]byte, error) {
	req, err := toRequest(cmd)
	if err != nil {
		return nil, err
	}
	body, err := proto.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedBody, cmd, err)
	}
	return body, nil
}

func toRequest(cmd Command) (*cameraRequest, error) {
	switch c := cmd.(type) {
	case SensorSelect:
		if !c.Sensor.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownSensor, int32(c.Sensor))
		}
		return management(&managementSensorSelect{
			SensorSelect: &sensorSelectRequest{SensorSelect: int32(c.Sensor)},
		}), nil
	case I2cRegWrite:
		return management(&managementRegWrite{RegWrite: &regWriteRequest{
			I2CPeripheralAddress: uint32(c.Address),
			RegisterAddress:      uint32(c.Register),
			Value:                uint32(c.Value),
		}}), nil
	case SetCrop:
		return dcmiConfig(&readCrop{Crop: &setCropRequest{
			StartX: uint32(c.StartX),
			StartY: uint32(c.StartY),
			LenX:   uint32(c.LenX),
			LenY:   uint32(c.LenY),
		}}), nil
	case SetPacking:
		return dcmiConfig(&readPack{Pack: &setPackingRequest{Pack: c.Pack}}), nil
	case DcmiHalt:
		return dcmiConfig(&readHalt{DcmiHalt: &dcmiEnableRequest{Halt: c.Halt}}), nil
	default:
		return nil, fmt.Errorf("%w: unsupported command %T", ErrMalformedBody, cmd)
	}
}

func management(r isManagementRequestRequest) *cameraRequest {
	return &cameraRequest{Request: &cameraRequestManagement{
		CameraManagement: &managementRequest{Request: r},
	}}
}

func dcmiConfig(r isReadRequestRequest) *cameraRequest {
	return &cameraRequest{Request: &cameraRequestDcmi{
		DcmiConfig: &readRequest{Request: r},
	}}
}

// Unmarshal decodes a pb_camera_request body back into a Command. Unknown
// fields are skipped so that newer firmware schemas still parse.
func Unmarshal(body []byte) (Command, error) {
	var req cameraRequest
	if err := proto.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	switch r := req.Request.(type) {
	case *cameraRequestManagement:
		if r.CameraManagement != nil {
			return fromManagement(r.CameraManagement)
		}
	case *cameraRequestDcmi:
		if r.DcmiConfig != nil {
			return fromDcmiConfig(r.DcmiConfig)
		}
	}
	return nil, fmt.Errorf("%w: no request set", ErrMalformedBody)
}

func fromManagement(m *managementRequest) (Command, error) {
	switch r := m.Request.(type) {
	case *managementSensorSelect:
		if r.SensorSelect == nil {
			break
		}
		s := Sensor(r.SensorSelect.SensorSelect)
		if !s.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownSensor, r.SensorSelect.SensorSelect)
		}
		return SensorSelect{Sensor: s}, nil
	case *managementRegWrite:
		if r.RegWrite == nil {
			break
		}
		w := r.RegWrite
		if err := bounded(w.I2CPeripheralAddress, 0x7F, "i2c address"); err != nil {
			return nil, err
		}
		if err := bounded(w.RegisterAddress, math.MaxUint16, "register"); err != nil {
			return nil, err
		}
		if err := bounded(w.Value, math.MaxUint8, "value"); err != nil {
			return nil, err
		}
		return I2cRegWrite{
			Address:  uint8(w.I2CPeripheralAddress),
			Register: uint16(w.RegisterAddress),
			Value:    uint8(w.Value),
		}, nil
	}
	return nil, fmt.Errorf("%w: empty management request", ErrMalformedBody)
}

func fromDcmiConfig(m *readRequest) (Command, error) {
	switch r := m.Request.(type) {
	case *readPack:
		if r.Pack != nil {
			return SetPacking{Pack: r.Pack.Pack}, nil
		}
	case *readHalt:
		if r.DcmiHalt != nil {
			return DcmiHalt{Halt: r.DcmiHalt.Halt}, nil
		}
	case *readCrop:
		if r.Crop == nil {
			break
		}
		c := r.Crop
		for _, v := range []uint32{c.StartX, c.StartY, c.LenX, c.LenY} {
			if err := bounded(v, math.MaxUint16, "crop field"); err != nil {
				return nil, err
			}
		}
		return SetCrop{
			StartX: uint16(c.StartX),
			StartY: uint16(c.StartY),
			LenX:   uint16(c.LenX),
			LenY:   uint16(c.LenY),
		}, nil
	}
	return nil, fmt.Errorf("%w: empty dcmi request", ErrMalformedBody)
}

func bounded(v, limit uint32, name string) error {
	if v > limit {
		return fmt.Errorf("%w: %s %d out of range", ErrMalformedBody, name, v)
	}
	return nil
}
