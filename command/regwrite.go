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
	"strconv"
	"strings"
)

// ParseRegisterWrite parses a manual register write of the form
// "<register>:<value>", both in hex with an optional 0x prefix.
func ParseRegisterWrite(s string) (reg uint16, value uint8, err error) {
	regStr, valStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, fmt.Errorf("%w: %q: expected <register>:<value>", ErrMalformedRegisterWrite, s)
	}

	r, err := parseHex(regStr, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: register %q: %w", ErrMalformedRegisterWrite, regStr, err)
	}
	v, err := parseHex(valStr, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: value %q: %w", ErrMalformedRegisterWrite, valStr, err)
	}
	return uint16(r), uint8(v), nil
}

func parseHex(s string, bits int) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(s, 16, bits)
	if err != nil {
		return 0, err
	}
	return v, nil
}
