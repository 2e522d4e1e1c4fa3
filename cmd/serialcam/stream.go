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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/frame"
	"github.com/ZaparooProject/go-serialcam/internal/config"
	"github.com/ZaparooProject/go-serialcam/internal/syncutil"
	"github.com/rs/zerolog"
)

// pollInterval is how long the loop sleeps when a Service call found nothing.
const pollInterval = 2 * time.Millisecond

// opener returns a fresh link and a name for logging.
type opener func(ctx context.Context) (serialcam.SerialLink, string, error)

// streamer owns the session and serializes every access to it, so the
// console goroutine and the service loop can share it.
type streamer struct {
	session   *serialcam.Session
	link      serialcam.SerialLink
	cfg       *config.File
	open      opener
	last      frame.Frame
	log       zerolog.Logger
	portName  string
	frames    uint64
	cycleGain int
	gainStep  int
	maxFrames int
	mu        syncutil.Mutex
}

func newStreamer(ctx context.Context, cfg *config.File, open opener, log zerolog.Logger) (*streamer, error) {
	link, name, err := open(ctx)
	if err != nil {
		return nil, err
	}
	session, err := serialcam.NewSession(link, serialcam.WithConfig(cfg.Session))
	if err != nil {
		closeLink(link)
		return nil, fmt.Errorf("failed to start session on %s: %w", name, err)
	}
	s := &streamer{
		session:  session,
		link:     link,
		cfg:      cfg,
		open:     open,
		log:      log,
		portName: name,
	}
	if err := session.Configure(cfg.Sensor); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to configure camera on %s: %w", name, err)
	}
	log.Info().Str("port", name).
		Str("sensor", session.CameraState().Sensor.String()).
		Stringer("crop", session.CameraState().Crop).
		Stringer("state", session.State()).
		Msg("camera configured")
	return s, nil
}

// step runs one Service call and drains the queue. It returns the number of
// frames consumed.
func (s *streamer) step() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.session.Service(); err != nil {
		return 0, err
	}

	n := 0
	for {
		f, ok := s.session.PopFrame()
		if !ok {
			break
		}
		n++
		s.frames++
		s.last = f
		if s.cycleGain > 0 && s.frames%uint64(s.cycleGain) == 0 { //nolint:gosec // cycleGain is positive
			if err := s.cycleGainLocked(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// cycleGainLocked steps analog gain through 0..3. Configuration is refused
// while streaming, so the stream is halted around the change.
func (s *streamer) cycleGainLocked() error {
	s.gainStep++
	gain := uint8(s.gainStep & 3) //nolint:gosec // masked to two bits
	if err := s.session.Halt(); err != nil {
		return err
	}
	if err := s.session.SetAnalogGain(gain); err != nil {
		return err
	}
	if err := s.session.ForceCommandUpdate(); err != nil {
		return err
	}
	s.log.Debug().Uint8("gain", gain).Msg("analog gain cycled")
	return s.session.Resume()
}

// run services the session until ctx ends, the frame limit is reached, or
// an unrecoverable error occurs.
func (s *streamer) run(ctx context.Context, report time.Duration) error {
	var reportC <-chan time.Time
	if report > 0 {
		ticker := time.NewTicker(report)
		defer ticker.Stop()
		reportC = ticker.C
	}
	idle := time.NewTimer(pollInterval)
	defer idle.Stop()

	for {
		n, err := s.step()
		if err != nil {
			if !serialcam.IsFatal(err) || !s.cfg.Reconnect.Enabled {
				return err
			}
			s.log.Warn().Err(err).Str("port", s.portName).Msg("link lost, reconnecting")
			if err := s.reconnect(ctx); err != nil {
				return err
			}
			continue
		}
		if s.maxFrames > 0 && s.frameCount() >= uint64(s.maxFrames) { //nolint:gosec // maxFrames is positive
			return nil
		}

		if n > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-reportC:
				s.report()
			default:
			}
			continue
		}

		idle.Reset(pollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reportC:
			s.report()
		case <-idle.C:
		}
	}
}

// reconnect reopens the link with backoff and restores the configuration.
func (s *streamer) reconnect(ctx context.Context) error {
	s.mu.Lock()
	closeLink(s.link)
	s.mu.Unlock()

	var link serialcam.SerialLink
	var name string
	attempt := 0
	err := RetryWithConfig(ctx, reconnectRetryConfig(s.cfg.Reconnect), func() error {
		attempt++
		var err error
		link, name, err = s.open(ctx)
		if err != nil {
			s.log.Debug().Err(err).Int("attempt", attempt).Msg("reopen failed")
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Reattach(link); err != nil {
		closeLink(link)
		return fmt.Errorf("reconnect: %w", err)
	}
	s.link, s.portName = link, name
	if err := s.session.Configure(s.cfg.Sensor); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	s.log.Info().Str("port", name).Int("attempts", attempt).Msg("reconnected")
	return nil
}

func (s *streamer) frameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *streamer) report() {
	s.mu.Lock()
	snap := s.session.Telemetry()
	stats := s.session.Stats()
	frames := s.frames
	s.mu.Unlock()

	s.log.Info().
		Float64("mb_per_s", snap.DataRate/1e6).
		Float64("fps", snap.FrameRate).
		Uint64("frames", frames).
		Uint64("dropped_bytes", stats.BytesDropped).
		Uint64("sync_losses", stats.SyncLosses).
		Msg("telemetry")
}

func (s *streamer) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.session.Close()
	if errors.Is(err, serialcam.ErrSessionClosed) {
		return nil
	}
	return err
}

func closeLink(link serialcam.SerialLink) {
	if c, ok := link.(io.Closer); ok {
		_ = c.Close()
	}
}
