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

import "fmt"

// MaxBodyLen is the largest body a one-byte length prefix can describe.
const MaxBodyLen = 255

// Frame prefixes body with its one-byte length. Oversized bodies are
// rejected rather than truncated.
func Frame(body []byte) ([]byte, error) {
	if len(body) > MaxBodyLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}
	wire := make([]byte, 0, len(body)+1)
	wire = append(wire, byte(len(body)))
	return append(wire, body...), nil
}

// Encode marshals cmd and frames it for the wire.
func Encode(cmd Command) ([]byte, error) {
	body, err := Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return Frame(body)
}

// EncodeAll encodes cmds back to back. Nothing is returned unless every
// command encodes.
func EncodeAll(cmds ...Command) ([]byte, error) {
	var wire []byte
	for _, cmd := range cmds {
		b, err := Encode(cmd)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", cmd, err)
		}
		wire = append(wire, b...)
	}
	return wire, nil
}

// Split takes one length-prefixed body off the front of wire. ok is false
// when wire does not yet hold a whole message.
func Split(wire []byte) (body, rest []byte, ok bool) {
	if len(wire) == 0 {
		return nil, wire, false
	}
	n := int(wire[0])
	if len(wire) < 1+n {
		return nil, wire, false
	}
	return wire[1 : 1+n], wire[1+n:], true
}

// Decode splits and unmarshals every whole message in wire. The unconsumed
// tail is returned so callers can wait for the rest of a partial message.
func Decode(wire []byte) (cmds []Command, rest []byte, err error) {
	for {
		body, tail, ok := Split(wire)
		if !ok {
			return cmds, wire, nil
		}
		cmd, err := Unmarshal(body)
		if err != nil {
			return cmds, tail, err
		}
		cmds = append(cmds, cmd)
		wire = tail
	}
}
