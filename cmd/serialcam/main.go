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

// Command serialcam streams frames from a Himax camera bridge board,
// reports throughput, and offers an interactive console for live tuning.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/detection"
	_ "github.com/ZaparooProject/go-serialcam/detection/i2c"
	_ "github.com/ZaparooProject/go-serialcam/detection/uart"
	"github.com/ZaparooProject/go-serialcam/frame"
	"github.com/ZaparooProject/go-serialcam/internal/config"
	"github.com/ZaparooProject/go-serialcam/internal/syncutil"
	"github.com/ZaparooProject/go-serialcam/transport/i2c"
	"github.com/ZaparooProject/go-serialcam/transport/uart"
	"github.com/rs/zerolog"
)

type options struct {
	configPath  string
	devicePath  string
	sensor      string
	crop        string
	logDir      string
	i2cBus      string
	detectMode  string
	report      time.Duration
	chunk       int
	cycleGain   int
	frames      int
	debug       bool
	interactive bool
	detectOnly  bool
}

// Package-level flag variables
var (
	flagConfigPath  string
	flagDevicePath  string
	flagSensor      string
	flagCrop        string
	flagLogDir      string
	flagI2CBus      string
	flagDetectMode  string
	flagReport      time.Duration
	flagChunk       int
	flagCycleGain   int
	flagFrames      int
	flagDebug       bool
	flagInteractive bool
	flagDetectOnly  bool
)

func init() {
	flag.StringVar(&flagConfigPath, "config", "", "TOML configuration file")
	flag.StringVar(&flagDevicePath, "device", "", "Serial port (auto-detect if empty)")
	flag.StringVar(&flagSensor, "sensor", "", "Sensor model: HM01B0 or HM0360")
	flag.StringVar(&flagCrop, "crop", "", "Crop window as WxH+X+Y")
	flag.StringVar(&flagLogDir, "log", "", "Directory for a session debug log")
	flag.StringVar(&flagI2CBus, "i2c-bus", "", "Reset and identify the sensor over this host I2C bus before streaming")
	flag.StringVar(&flagDetectMode, "detect-mode", "", "Detection mode: passive, safe or full")
	flag.DurationVar(&flagReport, "report", time.Second, "Telemetry report interval (0 disables)")
	flag.IntVar(&flagChunk, "chunk", 0, "Bytes read per service step")
	flag.IntVar(&flagCycleGain, "cycle-gain", 0, "Step analog gain through 0-3 every N frames")
	flag.IntVar(&flagFrames, "frames", 0, "Exit after N frames (0 streams until interrupted)")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
	flag.BoolVar(&flagInteractive, "interactive", false, "Open the interactive console")
	flag.BoolVar(&flagDetectOnly, "detect", false, "List detected cameras and exit")
}

func parseOptions() *options {
	return &options{
		configPath:  flagConfigPath,
		devicePath:  flagDevicePath,
		sensor:      flagSensor,
		crop:        flagCrop,
		logDir:      flagLogDir,
		i2cBus:      flagI2CBus,
		detectMode:  flagDetectMode,
		report:      flagReport,
		chunk:       flagChunk,
		cycleGain:   flagCycleGain,
		frames:      flagFrames,
		debug:       flagDebug,
		interactive: flagInteractive,
		detectOnly:  flagDetectOnly,
	}
}

// loadConfig reads the configuration file, if any, and applies flag overrides.
func loadConfig(opts *options) (*config.File, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	if opts.devicePath != "" {
		cfg.Device = opts.devicePath
	}
	if opts.sensor != "" {
		sensor, err := command.ParseSensor(opts.sensor)
		if err != nil {
			return nil, fmt.Errorf("-sensor: %w", err)
		}
		cfg.Sensor.Sensor = sensor
	}
	if opts.crop != "" {
		crop, err := frame.ParseCropWindow(opts.crop)
		if err != nil {
			return nil, fmt.Errorf("-crop: %w", err)
		}
		cfg.Sensor.Crop = crop
	}
	if opts.chunk > 0 {
		cfg.Session.ChunkSize = opts.chunk
	}
	if opts.detectMode != "" {
		mode, err := detection.ParseMode(opts.detectMode)
		if err != nil {
			return nil, fmt.Errorf("-detect-mode: %w", err)
		}
		cfg.Detect.Mode = mode
	}
	if opts.debug {
		cfg.Log.Debug = true
	}
	if opts.logDir != "" {
		cfg.Log.SessionLogDir = opts.logDir
	}
	if opts.interactive {
		// The console decides when to stream.
		cfg.Sensor.Stream = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogger builds the console logger and routes library debug output through it.
func initLogger(out io.Writer, debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", "serialcam").Logger()

	serialcam.SetDebugEnabled(debug)
	serialcam.SetDebugOutput(debugWriter{logger})
	syncutil.Configure(0, debugWriter{logger})
	return logger
}

// debugWriter turns each line written by the library into a debug event.
type debugWriter struct {
	log zerolog.Logger
}

func (w debugWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line = strings.TrimPrefix(line, "DEBUG: "); line != "" {
			w.log.Debug().Msg(line)
		}
	}
	return len(p), nil
}

// portOpener opens cfg.Device, or the best detected board when it is empty.
func portOpener(cfg *config.File, log zerolog.Logger) opener {
	return func(ctx context.Context) (serialcam.SerialLink, string, error) {
		path := cfg.Device
		if path == "" {
			opts := cfg.Detect
			opts.Transports = []string{"uart"}
			device, err := detection.DetectFirst(ctx, &opts)
			if err != nil {
				return nil, "", fmt.Errorf("failed to detect camera: %w", err)
			}
			log.Info().Stringer("device", device).Msg("detected camera")
			path = device.Path
		}
		link, err := uart.Open(path, cfg.UART)
		if err != nil {
			return nil, "", err
		}
		return link, path, nil
	}
}

// listDevices prints every detected camera.
func listDevices(ctx context.Context, cfg *config.File, out io.Writer) error {
	opts := cfg.Detect
	opts.EnableCache = false
	devices, err := detection.DetectAll(ctx, &opts)
	if err != nil {
		return err
	}
	for _, d := range devices {
		_, _ = fmt.Fprintln(out, d.String())
		for k, v := range d.Metadata {
			_, _ = fmt.Fprintf(out, "  %s: %s\n", k, v)
		}
	}
	return nil
}

// bringUp resets the sensor over host I2C and checks its model ID.
func bringUp(busName string, sensor command.Sensor, log zerolog.Logger) error {
	bus, err := i2c.Open(busName, sensor)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	if err := bus.SoftReset(); err != nil {
		return fmt.Errorf("sensor reset: %w", err)
	}
	if err := bus.Probe(); err != nil {
		return fmt.Errorf("sensor probe: %w", err)
	}
	log.Info().Str("bus", busName).Str("sensor", sensor.String()).Msg("sensor reset over I2C")
	return nil
}

func run(ctx context.Context, cfg *config.File, opts *options, log zerolog.Logger) error {
	if cfg.Log.SessionLogDir != "" {
		path, err := serialcam.InitSessionLog(cfg.Log.SessionLogDir)
		if err != nil {
			return fmt.Errorf("failed to open session log: %w", err)
		}
		defer func() { _ = serialcam.CloseSessionLog() }()
		log.Info().Str("path", path).Msg("session log")
	}

	if opts.detectOnly {
		return listDevices(ctx, cfg, os.Stdout)
	}
	if opts.i2cBus != "" {
		if err := bringUp(opts.i2cBus, cfg.Sensor.Sensor, log); err != nil {
			return err
		}
	}

	s, err := newStreamer(ctx, cfg, portOpener(cfg, log), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(); err != nil {
			log.Error().Err(err).Msg("failed to close session")
		}
	}()
	s.cycleGain = opts.cycleGain
	s.maxFrames = opts.frames

	if !opts.interactive {
		_, _ = fmt.Fprintln(os.Stderr, "Streaming. Press Ctrl+C to stop...")
		return s.run(ctx, opts.report)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.run(ctx, 0) }()

	runConsole(ctx, s)
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	opts := parseOptions()
	cfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	log := initLogger(os.Stderr, cfg.Log.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Fprint(os.Stderr, "\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg, opts, log); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		log.Error().Err(err).Msg("serialcam failed")
		return 1
	}
	return 0
}
