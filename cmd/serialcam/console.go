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
	"slices"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-serialcam"
	"github.com/ZaparooProject/go-serialcam/command"
	"github.com/ZaparooProject/go-serialcam/frame"
	"github.com/abiosoft/ishell"
)

var errUsage = errors.New("usage")

// consoleCmd is one interactive command. run is called with the streamer
// lock held.
type consoleCmd struct {
	run     func(s *streamer, args []string) (string, error)
	name    string
	help    string
	aliases []string
}

var consoleCmds = []consoleCmd{
	{name: "halt", help: "stop the DCMI stream", run: func(s *streamer, _ []string) (string, error) {
		return "", s.session.Halt()
	}},
	{name: "resume", aliases: []string{"go"}, help: "start the DCMI stream", run: func(s *streamer, _ []string) (string, error) {
		return "", s.session.Resume()
	}},
	{name: "sensor", help: "SENSOR  select HM01B0 or HM0360", run: func(s *streamer, args []string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: sensor HM01B0|HM0360", errUsage)
		}
		sensor, err := command.ParseSensor(args[0])
		if err != nil {
			return "", err
		}
		return "", s.reconfigureLocked(func() error { return s.session.SelectSensor(sensor) })
	}},
	{name: "crop", help: "WxH+X+Y  set the crop window", run: func(s *streamer, args []string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: crop WxH+X+Y", errUsage)
		}
		crop, err := frame.ParseCropWindow(args[0])
		if err != nil {
			return "", err
		}
		return "", s.reconfigureLocked(func() error { return s.session.SetCrop(crop) })
	}},
	{name: "reg", help: "REG:VALUE  write a sensor register (hex)", run: func(s *streamer, args []string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: reg 0x0205:0x10", errUsage)
		}
		return "", s.reconfigureLocked(func() error { return s.session.WriteRegisterString(args[0]) })
	}},
	{name: "ae", help: "on|off  toggle auto exposure", run: func(s *streamer, args []string) (string, error) {
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return "", fmt.Errorf("%w: ae on|off", errUsage)
		}
		return "", s.reconfigureLocked(func() error {
			if args[0] == "on" {
				return s.session.EnableAutoExposure()
			}
			return s.session.DisableAutoExposure()
		})
	}},
	{name: "again", help: "N  set analog gain (0-15)", run: gainCmd("again", func(s *serialcam.Session, g uint8) error {
		return s.SetAnalogGain(g)
	})},
	{name: "dgain", help: "N  set digital gain (0-255)", run: gainCmd("dgain", func(s *serialcam.Session, g uint8) error {
		return s.SetDigitalGain(g)
	})},
	{name: "rate", help: "show throughput", run: func(s *streamer, _ []string) (string, error) {
		snap := s.session.Telemetry()
		return fmt.Sprintf("%.3f MB/s  %.2f fps", snap.DataRate/1e6, snap.FrameRate), nil
	}},
	{name: "status", aliases: []string{"st"}, help: "show session and camera state", run: func(s *streamer, _ []string) (string, error) {
		cam := s.session.CameraState()
		stats := s.session.Stats()
		return fmt.Sprintf("port=%s state=%s sensor=%s crop=%s packed=%t frames=%d dropped=%d sync_losses=%d",
			s.portName, s.session.State(), cam.Sensor, cam.Crop, cam.Packing,
			s.frames, stats.BytesDropped, stats.SyncLosses), nil
	}},
	{name: "frame", help: "show the last frame's size and mean brightness", run: func(s *streamer, _ []string) (string, error) {
		if !s.last.Valid() {
			return "no frame yet", nil
		}
		sum := 0
		for _, p := range s.last.Pix {
			sum += int(p)
		}
		return fmt.Sprintf("%dx%d mean=%.1f", s.last.Width, s.last.Height, float64(sum)/float64(len(s.last.Pix))), nil
	}},
}

func gainCmd(name string, set func(*serialcam.Session, uint8) error) func(*streamer, []string) (string, error) {
	return func(s *streamer, args []string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: %s N", errUsage, name)
		}
		g, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return "", s.reconfigureLocked(func() error {
			if err := set(s.session, uint8(g)); err != nil {
				return err
			}
			return s.session.ForceCommandUpdate()
		})
	}
}

// reconfigureLocked applies fn, halting around it if the stream was running.
func (s *streamer) reconfigureLocked(fn func() error) error {
	wasStreaming := s.session.State() == serialcam.StateStreaming
	if wasStreaming {
		if err := s.session.Halt(); err != nil {
			return err
		}
	}
	if err := fn(); err != nil {
		return err
	}
	if wasStreaming {
		return s.session.Resume()
	}
	return nil
}

// exec runs the named console command.
func (s *streamer) exec(name string, args []string) (string, error) {
	for i := range consoleCmds {
		cmd := &consoleCmds[i]
		if cmd.name != name && !slices.Contains(cmd.aliases, name) {
			continue
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return cmd.run(s, args)
	}
	return "", fmt.Errorf("unknown command %q", name)
}

// newShell builds the interactive console around s.
func newShell(s *streamer) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt("serialcam> ")
	for i := range consoleCmds {
		cmd := consoleCmds[i]
		sh.AddCmd(&ishell.Cmd{
			Name:    cmd.name,
			Aliases: cmd.aliases,
			Help:    cmd.help,
			Func: func(c *ishell.Context) {
				out, err := s.exec(cmd.name, c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				if out != "" {
					c.Println(out)
				}
			},
		})
	}
	return sh
}

// runConsole blocks in the shell until the user exits or ctx ends.
func runConsole(ctx context.Context, s *streamer) {
	sh := newShell(s)
	sh.Println("serialcam console. Commands: " + strings.Join(commandNames(), ", "))

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			sh.Close()
		case <-done:
		}
	}()
	sh.Run()
	close(done)
}

func commandNames() []string {
	names := make([]string, 0, len(consoleCmds))
	for _, cmd := range consoleCmds {
		names = append(names, cmd.name)
	}
	return names
}
