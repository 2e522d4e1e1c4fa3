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

import "github.com/golang/protobuf/proto"

// Message types mirroring the board's camera_command.proto. They are
// written by hand in the shape protoc-gen-go emits, so proto.Marshal and
// proto.Unmarshal drive them from their struct tags.

// cameraRequest is pb_camera_request.
type cameraRequest struct {
	// Types that are valid to be assigned to Request:
	//	*cameraRequestManagement
	//	*cameraRequestDcmi
	Request isCameraRequestRequest `protobuf_oneof:"request"`
}

type isCameraRequestRequest interface {
	isCameraRequestRequest()
}

type cameraRequestManagement struct {
	CameraManagement *managementRequest `protobuf:"bytes,1,opt,name=camera_management,json=cameraManagement,proto3,oneof"`
}

type cameraRequestDcmi struct {
	DcmiConfig *readRequest `protobuf:"bytes,2,opt,name=dcmi_config,json=dcmiConfig,proto3,oneof"`
}

func (*cameraRequestManagement) isCameraRequestRequest() {}
func (*cameraRequestDcmi) isCameraRequestRequest()       {}

func (m *cameraRequest) Reset()         { *m = cameraRequest{} }
func (m *cameraRequest) String() string { return proto.CompactTextString(m) }
func (*cameraRequest) ProtoMessage()    {}

// XXX_OneofWrappers is for the internal use of the proto package.
func (*cameraRequest) XXX_OneofWrappers() []interface{} { //nolint:revive,stylecheck // proto hook name
	return []interface{}{
		(*cameraRequestManagement)(nil),
		(*cameraRequestDcmi)(nil),
	}
}

// managementRequest is pb_camera_management_request.
type managementRequest struct {
	// Types that are valid to be assigned to Request:
	//	*managementSensorSelect
	//	*managementRegWrite
	Request isManagementRequestRequest `protobuf_oneof:"request"`
}

type isManagementRequestRequest interface {
	isManagementRequestRequest()
}

type managementSensorSelect struct {
	SensorSelect *sensorSelectRequest `protobuf:"bytes,1,opt,name=sensor_select,json=sensorSelect,proto3,oneof"`
}

type managementRegWrite struct {
	RegWrite *regWriteRequest `protobuf:"bytes,2,opt,name=reg_write,json=regWrite,proto3,oneof"`
}

func (*managementSensorSelect) isManagementRequestRequest() {}
func (*managementRegWrite) isManagementRequestRequest()     {}

func (m *managementRequest) Reset()         { *m = managementRequest{} }
func (m *managementRequest) String() string { return proto.CompactTextString(m) }
func (*managementRequest) ProtoMessage()    {}

// XXX_OneofWrappers is for the internal use of the proto package.
func (*managementRequest) XXX_OneofWrappers() []interface{} { //nolint:revive,stylecheck // proto hook name
	return []interface{}{
		(*managementSensorSelect)(nil),
		(*managementRegWrite)(nil),
	}
}

// sensorSelectRequest is pb_camera_management_request.sensor_select.
type sensorSelectRequest struct {
	SensorSelect int32 `protobuf:"varint,1,opt,name=sensor_select,json=sensorSelect,proto3"`
}

func (m *sensorSelectRequest) Reset()         { *m = sensorSelectRequest{} }
func (m *sensorSelectRequest) String() string { return proto.CompactTextString(m) }
func (*sensorSelectRequest) ProtoMessage()    {}

// regWriteRequest is pb_camera_management_request.reg_write.
type regWriteRequest struct {
	I2CPeripheralAddress uint32 `protobuf:"varint,1,opt,name=i2c_peripheral_address,json=i2cPeripheralAddress,proto3"`
	RegisterAddress      uint32 `protobuf:"varint,2,opt,name=register_address,json=registerAddress,proto3"`
	Value                uint32 `protobuf:"varint,3,opt,name=value,proto3"`
}

func (m *regWriteRequest) Reset()         { *m = regWriteRequest{} }
func (m *regWriteRequest) String() string { return proto.CompactTextString(m) }
func (*regWriteRequest) ProtoMessage()    {}

// readRequest is pb_camera_read_request.
type readRequest struct {
	// Types that are valid to be assigned to Request:
	//	*readCrop
	//	*readPack
	//	*readHalt
	Request isReadRequestRequest `protobuf_oneof:"request"`
}

type isReadRequestRequest interface {
	isReadRequestRequest()
}

type readCrop struct {
	Crop *setCropRequest `protobuf:"bytes,1,opt,name=crop,proto3,oneof"`
}

type readPack struct {
	Pack *setPackingRequest `protobuf:"bytes,2,opt,name=pack,proto3,oneof"`
}

type readHalt struct {
	DcmiHalt *dcmiEnableRequest `protobuf:"bytes,3,opt,name=dcmi_halt,json=dcmiHalt,proto3,oneof"`
}

func (*readCrop) isReadRequestRequest() {}
func (*readPack) isReadRequestRequest() {}
func (*readHalt) isReadRequestRequest() {}

func (m *readRequest) Reset()         { *m = readRequest{} }
func (m *readRequest) String() string { return proto.CompactTextString(m) }
func (*readRequest) ProtoMessage()    {}

// XXX_OneofWrappers is for the internal use of the proto package.
func (*readRequest) XXX_OneofWrappers() []interface{} { //nolint:revive,stylecheck // proto hook name
	return []interface{}{
		(*readCrop)(nil),
		(*readPack)(nil),
		(*readHalt)(nil),
	}
}

// setCropRequest is pb_camera_read_request.set_crop.
type setCropRequest struct {
	StartX uint32 `protobuf:"varint,1,opt,name=start_x,json=startX,proto3"`
	StartY uint32 `protobuf:"varint,2,opt,name=start_y,json=startY,proto3"`
	LenX   uint32 `protobuf:"varint,3,opt,name=len_x,json=lenX,proto3"`
	LenY   uint32 `protobuf:"varint,4,opt,name=len_y,json=lenY,proto3"`
}

func (m *setCropRequest) Reset()         { *m = setCropRequest{} }
func (m *setCropRequest) String() string { return proto.CompactTextString(m) }
func (*setCropRequest) ProtoMessage()    {}

// setPackingRequest is pb_camera_read_request.set_packing.
type setPackingRequest struct {
	Pack bool `protobuf:"varint,1,opt,name=pack,proto3"`
}

func (m *setPackingRequest) Reset()         { *m = setPackingRequest{} }
func (m *setPackingRequest) String() string { return proto.CompactTextString(m) }
func (*setPackingRequest) ProtoMessage()    {}

// dcmiEnableRequest is pb_camera_read_request.dcmi_enable.
type dcmiEnableRequest struct {
	Halt bool `protobuf:"varint,1,opt,name=halt,proto3"`
}

func (m *dcmiEnableRequest) Reset()         { *m = dcmiEnableRequest{} }
func (m *dcmiEnableRequest) String() string { return proto.CompactTextString(m) }
func (*dcmiEnableRequest) ProtoMessage()    {}
