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

package serialcam

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/frame"
	"github.com/ZaparooProject/go-serialcam/telemetry"
)

// Option configures a Session
type Option func(*Session) error

// WithConfig sets the session configuration
func WithConfig(cfg *Config) Option {
	return func(s *Session) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidParameter)
		}
		s.config = cfg
		return nil
	}
}

// WithClock sets the clock used for telemetry sampling
func WithClock(clock telemetry.Clock) Option {
	return func(s *Session) error {
		s.clock = clock
		return nil
	}
}

// WithInitialState overrides the assumed board configuration, for boards
// that were configured by an earlier session without a power cycle.
func WithInitialState(st command.State) Option {
	return func(s *Session) error {
		if !st.Sensor.Valid() {
			return fmt.Errorf("%w: %w", ErrInvalidParameter, command.ErrUnknownSensor)
		}
		if err := st.Crop.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		}
		s.camera = st
		return nil
	}
}

// Stats are running totals since the session was created
type Stats struct {
	BytesRead     uint64
	BytesDropped  uint64
	FramesDecoded uint64
	SyncLosses    uint64
}

// Session drives one camera board over a SerialLink: it sends configuration
// commands and decodes the returned byte stream into frames.
//
// Thread Safety: Session is NOT thread-safe. It never starts goroutines and
// Service never blocks, so the intended use is a single loop that calls
// Service and PopFrame. Hosts that configure from another goroutine must
// serialize access themselves.
type Session struct {
	link    SerialLink
	config  *Config
	clock   telemetry.Clock
	sync    *frame.Synchronizer
	tracker *telemetry.Tracker
	readBuf []byte
	queue   FrameQueue
	camera  command.State
	stats   Stats
	enc     command.Encoder
	state   State
}

// NewSession wraps link and halts the board's DCMI stream so that the
// session starts from a known state.
func NewSession(link SerialLink, opts ...Option) (*Session, error) {
	if link == nil {
		return nil, fmt.Errorf("%w: nil link", ErrInvalidParameter)
	}

	s := &Session{
		link:   link,
		config: DefaultConfig(),
		camera: command.DefaultState(),
		state:  StateUnconfigured,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	sync, err := frame.NewSynchronizerWithPreamble(s.config.PreambleLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	tracker, err := telemetry.NewTracker(s.config.Telemetry, s.clock)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	s.sync = sync
	s.tracker = tracker
	s.readBuf = make([]byte, s.config.ChunkSize)

	if err := s.sendHalt(true); err != nil {
		return nil, fmt.Errorf("initial halt: %w", err)
	}
	s.state = StateHalted
	Debugf("session on %q ready: %s %s", portName(link), s.camera.Sensor, s.camera.Crop)
	return s, nil
}

// State returns the lifecycle state
func (s *Session) State() State {
	return s.state
}

// CameraState returns the host's record of the board configuration
func (s *Session) CameraState() command.State {
	return s.camera
}

// Config returns the session configuration
func (s *Session) Config() Config {
	return *s.config
}

// Stats returns running totals
func (s *Session) Stats() Stats {
	return s.stats
}

// FrameReady reports whether a decoded frame is waiting
func (s *Session) FrameReady() bool {
	return s.queue.Len() > 0
}

// PopFrame removes and returns the oldest decoded frame
func (s *Session) PopFrame() (frame.Frame, bool) {
	return s.queue.Pop()
}

// QueueLen returns the number of decoded frames waiting
func (s *Session) QueueLen() int {
	return s.queue.Len()
}

// DataRate returns the moving-average link throughput in bytes per second
func (s *Session) DataRate() float64 {
	return s.tracker.DataRate()
}

// FrameRate returns the moving-average decode rate in frames per second
func (s *Session) FrameRate() float64 {
	return s.tracker.FrameRate()
}

// Telemetry returns both rates at once
func (s *Session) Telemetry() telemetry.Snapshot {
	return s.tracker.Snapshot()
}

// SelectSensor switches to another sensor and sets packing to match
func (s *Session) SelectSensor(sensor command.Sensor) error {
	return s.configure("select sensor", func(st command.State) (command.State, []byte, error) {
		return s.enc.SelectSensor(st, sensor)
	})
}

// SetCrop sets the capture window. Frames are extracted with this crop once
// streaming resumes.
func (s *Session) SetCrop(crop frame.CropWindow) error {
	return s.configure("set crop", func(st command.State) (command.State, []byte, error) {
		return s.enc.SetCrop(st, crop)
	})
}

// WriteRegister writes one register on the selected sensor
func (s *Session) WriteRegister(reg uint16, value uint8) error {
	return s.configure("write register", func(st command.State) (command.State, []byte, error) {
		return s.enc.WriteRegister(st, reg, value)
	})
}

// WriteRegisterString parses "<register>:<value>" in hex and writes it.
// Malformed input is rejected before anything is sent.
func (s *Session) WriteRegisterString(spec string) error {
	if err := s.checkConfigurable("write register"); err != nil {
		return err
	}
	reg, value, err := command.ParseRegisterWrite(spec)
	if err != nil {
		return err
	}
	return s.WriteRegister(reg, value)
}

// EnableAutoExposure turns on sensor auto exposure (HM01B0 only)
func (s *Session) EnableAutoExposure() error {
	return s.configure("enable auto exposure", s.enc.EnableAutoExposure)
}

// DisableAutoExposure turns off sensor auto exposure (HM01B0 only)
func (s *Session) DisableAutoExposure() error {
	return s.configure("disable auto exposure", s.enc.DisableAutoExposure)
}

// SetAnalogGain sets the analog gain step (HM01B0 only)
func (s *Session) SetAnalogGain(gain uint8) error {
	return s.configure("set analog gain", func(st command.State) (command.State, []byte, error) {
		return s.enc.SetAnalogGain(st, gain)
	})
}

// SetDigitalGain sets the digital gain (HM01B0 only)
func (s *Session) SetDigitalGain(gain uint8) error {
	return s.configure("set digital gain", func(st command.State) (command.State, []byte, error) {
		return s.enc.SetDigitalGain(st, gain)
	})
}

// ForceCommandUpdate latches pending register writes (HM01B0 only)
func (s *Session) ForceCommandUpdate() error {
	return s.configure("force command update", s.enc.ForceCommandUpdate)
}

// SetExposure is accepted for API completeness; no sensor preset exists yet
func (s *Session) SetExposure(exposure uint16) error {
	return s.configure("set exposure", func(st command.State) (command.State, []byte, error) {
		return s.enc.SetExposure(st, exposure)
	})
}

// Halt stops the DCMI stream. Frames already queued stay queued.
func (s *Session) Halt() error {
	if s.state == StateClosed {
		return fmt.Errorf("halt: %w", ErrSessionClosed)
	}
	if err := s.sendHalt(true); err != nil {
		return err
	}
	s.state = StateHalted
	return nil
}

// Resume starts the DCMI stream. Bytes the link already holds were sent
// before the halt, possibly with another crop, so they are discarded along
// with any partial frame.
func (s *Session) Resume() error {
	switch s.state {
	case StateClosed:
		return fmt.Errorf("resume: %w", ErrSessionClosed)
	case StateStreaming:
		return nil
	case StateHalted, StateConfiguring:
	default:
		return fmt.Errorf("resume from %s: %w", s.state, ErrInvalidState)
	}

	stale, err := s.discardAvailable()
	if err != nil {
		return err
	}
	if stale > 0 {
		Debugf("resume: discarded %d stale bytes", stale)
	}
	s.sync.Reset()

	if err := s.sendHalt(false); err != nil {
		return err
	}
	s.tracker.Reset()
	s.state = StateStreaming
	return nil
}

// Configure applies a complete setup in the order the board needs: halt,
// sensor select, crop, exposure and gain presets, raw registers, command
// update, and optionally resume.
func (s *Session) Configure(cfg SensorConfig) error {
	if s.state == StateClosed {
		return fmt.Errorf("configure: %w", ErrSessionClosed)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.Halt(); err != nil {
		return err
	}
	if err := s.SelectSensor(cfg.Sensor); err != nil {
		return err
	}
	if err := s.SetCrop(cfg.Crop); err != nil {
		return err
	}

	touched := false
	if cfg.AutoExposure != nil {
		touched = true
		op := s.DisableAutoExposure
		if *cfg.AutoExposure {
			op = s.EnableAutoExposure
		}
		if err := op(); err != nil {
			return err
		}
	}
	if cfg.AnalogGain != nil {
		touched = true
		if err := s.SetAnalogGain(*cfg.AnalogGain); err != nil {
			return err
		}
	}
	if cfg.DigitalGain != nil {
		touched = true
		if err := s.SetDigitalGain(*cfg.DigitalGain); err != nil {
			return err
		}
	}
	for _, w := range cfg.Registers {
		touched = true
		if err := s.WriteRegister(w.Register, w.Value); err != nil {
			return err
		}
	}
	if touched {
		if err := s.ForceCommandUpdate(); err != nil {
			return err
		}
	}

	if cfg.Stream {
		return s.Resume()
	}
	return nil
}

// Service performs one non-blocking poll step: it reads what the link has
// (at most ChunkSize bytes), decodes every complete frame into the queue
// and updates telemetry. It returns the number of frames decoded.
//
// Outside streaming it does nothing, so a host loop can keep calling it
// while reconfiguring. On a link error the session halts, partial data and
// telemetry are discarded, and the error is returned as a *TransportError.
func (s *Session) Service() (int, error) {
	switch s.state {
	case StateClosed:
		return 0, fmt.Errorf("service: %w", ErrSessionClosed)
	case StateStreaming:
	default:
		return 0, nil
	}

	avail, err := s.link.Available()
	if err != nil {
		return 0, s.fail(linkError("read", s.link, err))
	}
	if avail > 0 {
		n, err := s.link.Read(s.readBuf[:min(avail, len(s.readBuf))])
		if err != nil {
			return 0, s.fail(linkError("read", s.link, err))
		}
		s.sync.Ingest(s.readBuf[:n])
		s.tracker.AddBytes(n)
		s.stats.BytesRead += uint64(n) //nolint:gosec // n is non-negative
	}

	frames, dropped := s.sync.Drain(s.camera.Crop)
	if dropped > 0 {
		s.stats.BytesDropped += uint64(dropped) //nolint:gosec // dropped is non-negative
		s.stats.SyncLosses++
		Debugf("sync: dropped %d bytes while aligning on preamble", dropped)
	}
	for _, f := range frames {
		s.queue.Push(f)
	}
	s.stats.FramesDecoded += uint64(len(frames))
	s.tracker.AddFrames(len(frames))
	s.tracker.Tick()

	return len(frames), nil
}

// Reattach replaces the link after a transport failure, for example once
// the caller reopened a re-enumerated port. The session must be halted.
// The board is halted again on the new link.
func (s *Session) Reattach(link SerialLink) error {
	if link == nil {
		return fmt.Errorf("%w: nil link", ErrInvalidParameter)
	}
	switch s.state {
	case StateClosed:
		return fmt.Errorf("reattach: %w", ErrSessionClosed)
	case StateHalted:
	default:
		return fmt.Errorf("reattach while %s: %w", s.state, ErrInvalidState)
	}

	s.link = link
	s.sync.Reset()
	s.tracker.Reset()
	return s.sendHalt(true)
}

// Close halts the board on a best-effort basis and closes the link if it
// implements io.Closer. Partial frame data is discarded; already queued
// frames can still be popped.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return fmt.Errorf("close: %w", ErrSessionClosed)
	}
	if s.state == StateStreaming || s.state == StateConfiguring {
		if err := s.sendHalt(true); err != nil {
			Debugf("close: halt failed: %v", err)
		}
	}
	s.state = StateClosed
	s.sync.Reset()
	s.tracker.Reset()

	if c, ok := s.link.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close link: %w", err)
		}
	}
	return nil
}

func (s *Session) checkConfigurable(op string) error {
	switch {
	case s.state == StateClosed:
		return fmt.Errorf("%s: %w", op, ErrSessionClosed)
	case !s.state.CanConfigure():
		return fmt.Errorf("%s while %s: %w", op, s.state, ErrInvalidState)
	default:
		return nil
	}
}

// configure runs one encoder step and commits its state only after the
// bytes were written in full.
func (s *Session) configure(op string, step func(command.State) (command.State, []byte, error)) error {
	if err := s.checkConfigurable(op); err != nil {
		return err
	}
	next, wire, err := step(s.camera)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.write(op, wire); err != nil {
		return err
	}
	s.camera = next
	s.state = StateConfiguring
	return nil
}

func (s *Session) sendHalt(halt bool) error {
	next, wire, err := s.enc.SetDcmiHalted(s.camera, halt)
	if err != nil {
		return err
	}
	op := "resume"
	if halt {
		op = "halt"
	}
	if err := s.write(op, wire); err != nil {
		return err
	}
	s.camera = next
	return nil
}

func (s *Session) write(op string, wire []byte) error {
	if len(wire) == 0 {
		return nil
	}
	n, err := s.link.Write(wire)
	if err != nil {
		return s.fail(linkError("write", s.link, err))
	}
	if n != len(wire) {
		short := fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(wire))
		return s.fail(NewTransportWriteError(portName(s.link), short))
	}
	Debugf("%s: sent % X", op, wire)
	return nil
}

// discardAvailable drops everything the link currently holds.
func (s *Session) discardAvailable() (int, error) {
	total := 0
	for {
		avail, err := s.link.Available()
		if err != nil {
			return total, s.fail(linkError("read", s.link, err))
		}
		if avail == 0 {
			return total, nil
		}
		n, err := s.link.Read(s.readBuf[:min(avail, len(s.readBuf))])
		if err != nil {
			return total, s.fail(linkError("read", s.link, err))
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
}

// fail moves the session to Halted after a link failure. The board can no
// longer be assumed to stream, and buffered bytes may be torn.
func (s *Session) fail(err error) error {
	if s.state != StateClosed {
		s.state = StateHalted
	}
	s.camera.Halted = true
	s.sync.Reset()
	s.tracker.Reset()
	Debugf("link failure: %v", err)
	return err
}

func linkError(op string, link SerialLink, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if op == "write" {
		return NewTransportWriteError(portName(link), err)
	}
	return NewTransportReadError(portName(link), err)
}
