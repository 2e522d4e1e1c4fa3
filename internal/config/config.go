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

// Package config loads the command-line tools' TOML configuration file.
// Every key is optional: values start from the library defaults and only
// keys present in the file override them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/detection"
	"github.com/ZaparooProject/go-serialcam/transport/uart"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Reconnect controls how the CLI reopens a port after a fatal link error.
type Reconnect struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Enabled      bool
}

// Log controls diagnostic output.
type Log struct {
	SessionLogDir string
	Debug         bool
}

// File is the fully resolved configuration.
type File struct {
	Session   *serialcam.Config
	Device    string
	Detect    detection.Options
	Sensor    serialcam.SensorConfig
	Log       Log
	Reconnect Reconnect
	UART      uart.Config
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		Session: serialcam.DefaultConfig(),
		Sensor:  serialcam.DefaultSensorConfig(),
		Detect:  detection.DefaultOptions(),
		UART:    uart.DefaultConfig(),
		Reconnect: Reconnect{
			Enabled:      true,
			MaxAttempts:  5,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
	}
}

type cropFile struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type fileConfig struct {
	Device      string `toml:"device"`
	Baud        int    `toml:"baud"`
	ReadChunk   int    `toml:"read_chunk"`
	ChunkSize   int    `toml:"chunk_size"`
	PreambleLen int    `toml:"preamble_len"`
	Telemetry   struct {
		Interval string `toml:"interval"`
		Window   int    `toml:"window"`
	} `toml:"telemetry"`
	Sensor struct {
		Model        string   `toml:"model"`
		Crop         cropFile `toml:"crop"`
		AutoExposure bool     `toml:"auto_exposure"`
		AnalogGain   uint8    `toml:"analog_gain"`
		DigitalGain  uint8    `toml:"digital_gain"`
		Registers    []string `toml:"registers"`
		Stream       bool     `toml:"stream"`
	} `toml:"sensor"`
	Detect struct {
		Mode         string   `toml:"mode"`
		Transports   []string `toml:"transports"`
		Blocklist    []string `toml:"blocklist"`
		KnownBoards  []string `toml:"known_boards"`
		IgnorePaths  []string `toml:"ignore_paths"`
		Timeout      string   `toml:"timeout"`
		ProbeTimeout string   `toml:"probe_timeout"`
	} `toml:"detect"`
	Reconnect struct {
		Enabled      bool   `toml:"enabled"`
		MaxAttempts  int    `toml:"max_attempts"`
		InitialDelay string `toml:"initial_delay"`
		MaxDelay     string `toml:"max_delay"`
	} `toml:"reconnect"`
	Log struct {
		Debug         bool   `toml:"debug"`
		SessionLogDir string `toml:"session_log_dir"`
	} `toml:"log"`
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg, err := resolve(&raw, meta)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates configuration text.
func Parse(data string) (*File, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("config parse failed: %w", err)
	}
	return resolve(&raw, meta)
}

//nolint:gocognit,gocyclo,cyclop,funlen // One branch per optional key
func resolve(raw *fileConfig, meta toml.MetaData) (*File, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys: %s", ErrInvalid, strings.Join(keys, ", "))
	}

	cfg := Default()
	var err error

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud") {
		cfg.UART.BaudRate = raw.Baud
	}
	if meta.IsDefined("read_chunk") {
		cfg.UART.ReadChunk = raw.ReadChunk
	}
	if meta.IsDefined("chunk_size") {
		cfg.Session.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("preamble_len") {
		cfg.Session.PreambleLen = raw.PreambleLen
	}
	if meta.IsDefined("telemetry", "interval") {
		if cfg.Session.Telemetry.Interval, err = parseDuration("telemetry.interval", raw.Telemetry.Interval); err != nil {
			return nil, err
		}
	}
	if meta.IsDefined("telemetry", "window") {
		cfg.Session.Telemetry.Window = raw.Telemetry.Window
	}

	if meta.IsDefined("sensor", "model") {
		if cfg.Sensor.Sensor, err = command.ParseSensor(raw.Sensor.Model); err != nil {
			return nil, fmt.Errorf("%w: sensor.model: %w", ErrInvalid, err)
		}
	}
	if meta.IsDefined("sensor", "crop", "x") {
		cfg.Sensor.Crop.StartX = raw.Sensor.Crop.X
	}
	if meta.IsDefined("sensor", "crop", "y") {
		cfg.Sensor.Crop.StartY = raw.Sensor.Crop.Y
	}
	if meta.IsDefined("sensor", "crop", "width") {
		cfg.Sensor.Crop.Width = raw.Sensor.Crop.Width
	}
	if meta.IsDefined("sensor", "crop", "height") {
		cfg.Sensor.Crop.Height = raw.Sensor.Crop.Height
	}
	if meta.IsDefined("sensor", "auto_exposure") {
		ae := raw.Sensor.AutoExposure
		cfg.Sensor.AutoExposure = &ae
	}
	if meta.IsDefined("sensor", "analog_gain") {
		g := raw.Sensor.AnalogGain
		cfg.Sensor.AnalogGain = &g
	}
	if meta.IsDefined("sensor", "digital_gain") {
		g := raw.Sensor.DigitalGain
		cfg.Sensor.DigitalGain = &g
	}
	for i, spec := range raw.Sensor.Registers {
		reg, val, err := command.ParseRegisterWrite(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: sensor.registers[%d]: %w", ErrInvalid, i, err)
		}
		cfg.Sensor.Registers = append(cfg.Sensor.Registers, serialcam.RegisterWrite{Register: reg, Value: val})
	}
	if meta.IsDefined("sensor", "stream") {
		cfg.Sensor.Stream = raw.Sensor.Stream
	}

	if meta.IsDefined("detect", "mode") {
		if cfg.Detect.Mode, err = detection.ParseMode(strings.TrimSpace(raw.Detect.Mode)); err != nil {
			return nil, fmt.Errorf("%w: detect.mode: %w", ErrInvalid, err)
		}
	}
	if meta.IsDefined("detect", "transports") {
		cfg.Detect.Transports = normalizeList(raw.Detect.Transports)
	}
	if meta.IsDefined("detect", "blocklist") {
		cfg.Detect.Blocklist = normalizeList(raw.Detect.Blocklist)
	}
	if meta.IsDefined("detect", "known_boards") {
		cfg.Detect.KnownBoards = normalizeList(raw.Detect.KnownBoards)
	}
	if meta.IsDefined("detect", "ignore_paths") {
		cfg.Detect.IgnorePaths = normalizeList(raw.Detect.IgnorePaths)
	}
	if meta.IsDefined("detect", "timeout") {
		if cfg.Detect.Timeout, err = parseDuration("detect.timeout", raw.Detect.Timeout); err != nil {
			return nil, err
		}
	}
	if meta.IsDefined("detect", "probe_timeout") {
		if cfg.Detect.ProbeTimeout, err = parseDuration("detect.probe_timeout", raw.Detect.ProbeTimeout); err != nil {
			return nil, err
		}
	}

	if meta.IsDefined("reconnect", "enabled") {
		cfg.Reconnect.Enabled = raw.Reconnect.Enabled
	}
	if meta.IsDefined("reconnect", "max_attempts") {
		cfg.Reconnect.MaxAttempts = raw.Reconnect.MaxAttempts
	}
	if meta.IsDefined("reconnect", "initial_delay") {
		if cfg.Reconnect.InitialDelay, err = parseDuration("reconnect.initial_delay", raw.Reconnect.InitialDelay); err != nil {
			return nil, err
		}
	}
	if meta.IsDefined("reconnect", "max_delay") {
		if cfg.Reconnect.MaxDelay, err = parseDuration("reconnect.max_delay", raw.Reconnect.MaxDelay); err != nil {
			return nil, err
		}
	}

	if meta.IsDefined("log", "debug") {
		cfg.Log.Debug = raw.Log.Debug
	}
	if meta.IsDefined("log", "session_log_dir") {
		cfg.Log.SessionLogDir = strings.TrimSpace(raw.Log.SessionLogDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (f *File) Validate() error {
	if err := f.Session.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := f.Sensor.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if f.UART.BaudRate <= 0 {
		return fmt.Errorf("%w: baud must be positive", ErrInvalid)
	}
	if f.UART.ReadChunk <= 0 {
		return fmt.Errorf("%w: read_chunk must be positive", ErrInvalid)
	}
	if f.Reconnect.Enabled {
		if f.Reconnect.MaxAttempts < 1 {
			return fmt.Errorf("%w: reconnect.max_attempts must be at least 1", ErrInvalid)
		}
		if f.Reconnect.InitialDelay <= 0 || f.Reconnect.MaxDelay < f.Reconnect.InitialDelay {
			return fmt.Errorf("%w: reconnect delays must satisfy 0 < initial_delay <= max_delay", ErrInvalid)
		}
	}
	return nil
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %w", ErrInvalid, key, err)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
