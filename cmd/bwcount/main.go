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

// Command bwcount measures raw link throughput from a camera board. It
// starts the DCMI stream, counts every byte that arrives for a fixed time
// without decoding anything, and halts the stream again.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/transport/uart"
	"github.com/rs/zerolog"
)

type config struct {
	devicePath string
	duration   time.Duration
	baud       int
	noStart    bool
}

// Package-level flag variables
var (
	flagDevicePath string
	flagDuration   time.Duration
	flagBaud       int
	flagNoStart    bool
)

func init() {
	flag.StringVar(&flagDevicePath, "device", "", "Serial port of the camera board (required)")
	flag.DurationVar(&flagDuration, "duration", 5*time.Second, "How long to count bytes")
	flag.IntVar(&flagBaud, "baud", 0, "Baud rate (0 keeps the driver default)")
	flag.BoolVar(&flagNoStart, "no-start", false, "Count whatever arrives without sending a resume command")
}

func parseConfig() *config {
	return &config{
		devicePath: flagDevicePath,
		duration:   flagDuration,
		baud:       flagBaud,
		noStart:    flagNoStart,
	}
}

// result is one measurement.
type result struct {
	Bytes   uint64
	Reads   uint64
	Elapsed time.Duration
}

// Rate returns the measured throughput in bytes per second.
func (r result) Rate() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Elapsed.Seconds()
}

func (r result) String() string {
	return fmt.Sprintf("%d bytes in %d reads over %s: %.3f MB/s",
		r.Bytes, r.Reads, r.Elapsed.Round(time.Millisecond), r.Rate()/1e6)
}

func sendHalt(link serialcam.SerialLink, halt bool) error {
	wire, err := command.Encode(command.DcmiHalt{Halt: halt})
	if err != nil {
		return err
	}
	n, err := link.Write(wire)
	if err != nil {
		return fmt.Errorf("failed to send halt=%t: %w", halt, err)
	}
	if n != len(wire) {
		return fmt.Errorf("failed to send halt=%t: %w: %d of %d bytes", halt, serialcam.ErrShortWrite, n, len(wire))
	}
	return nil
}

// measure counts bytes from link until d has passed or ctx ends.
func measure(ctx context.Context, link serialcam.SerialLink, d time.Duration) (result, error) {
	buf := make([]byte, 64*1024)
	start := time.Now()
	deadline := start.Add(d)
	var res result

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		avail, err := link.Available()
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}
		if avail == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		n, err := link.Read(buf[:min(avail, len(buf))])
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}
		res.Bytes += uint64(n) //nolint:gosec // n is non-negative
		res.Reads++
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func run(ctx context.Context, link serialcam.SerialLink, cfg *config, log zerolog.Logger) (result, error) {
	if !cfg.noStart {
		if err := sendHalt(link, false); err != nil {
			return result{}, err
		}
		log.Debug().Msg("stream started")
	}
	res, err := measure(ctx, link, cfg.duration)
	if !cfg.noStart {
		if herr := sendHalt(link, true); herr != nil && err == nil {
			err = herr
		}
	}
	return res, err
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg := parseConfig()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "bwcount").Logger()

	if cfg.devicePath == "" {
		log.Error().Msg("-device is required")
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ucfg := uart.DefaultConfig()
	if cfg.baud > 0 {
		ucfg.BaudRate = cfg.baud
	}
	link, err := uart.Open(cfg.devicePath, ucfg)
	if err != nil {
		log.Error().Err(err).Str("port", cfg.devicePath).Msg("failed to open port")
		return 1
	}
	defer func() {
		if err := link.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close port")
		}
	}()

	res, err := run(ctx, link, cfg, log)
	_, _ = fmt.Println(res)
	if err != nil {
		log.Error().Err(err).Msg("measurement failed")
		return 1
	}
	return 0
}
