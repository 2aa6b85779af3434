// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package broadcast_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/fsmd/internal/broadcast"
	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/config"
	"github.com/retr0h/fsmd/internal/store"
)

type BroadcastPublicTestSuite struct {
	suite.Suite

	logger    *slog.Logger
	appConfig config.Config
	store     *store.Store
	server    *broadcast.Server
	ts        *httptest.Server
	wsURL     string
}

func (s *BroadcastPublicTestSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	s.appConfig = config.Config{
		Bus: config.Bus{
			SocketDir: s.T().TempDir(),
			Prefix:    "fsmd",
		},
		Broadcaster: config.Broadcaster{
			Port:                3002,
			SendTimeoutSeconds:  2,
			PingIntervalSeconds: 10,
			WatchdogSeconds:     15,
		},
	}

	var err error
	s.store, err = store.New(
		s.logger,
		filepath.Join(s.T().TempDir(), "state.db"),
	)
	s.Require().NoError(err)

	s.server, err = broadcast.New(s.appConfig, s.logger, s.store)
	s.Require().NoError(err)

	s.ts = httptest.NewServer(s.server.Echo)
	s.wsURL = strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws/events"
}

func (s *BroadcastPublicTestSuite) TearDownTest() {
	s.ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.server.Stop(ctx)

	_ = s.store.Close()
}

func (s *BroadcastPublicTestSuite) dial() *websocket.Conn {
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL, nil)
	s.Require().NoError(err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *BroadcastPublicTestSuite) readFrame(conn *websocket.Conn) bus.Frame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))

	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)

	var frame bus.Frame
	s.Require().NoError(json.Unmarshal(data, &frame))
	return frame
}

func (s *BroadcastPublicTestSuite) TestInitialSnapshot() {
	err := s.store.UpsertMachineState(store.MachineState{
		MachineName:  "worker",
		ConfigType:   "worker",
		CurrentState: "idle",
		PID:          1234,
	})
	s.Require().NoError(err)

	conn := s.dial()

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)

	// Machines and recent history sit at the frame's top level.
	var frame map[string]any
	s.Require().NoError(json.Unmarshal(data, &frame))
	s.Equal(bus.FrameInitial, frame["type"])

	machines, ok := frame["machines"].([]any)
	s.Require().True(ok)
	s.Len(machines, 1)
}

func (s *BroadcastPublicTestSuite) TestFabricFrameRelayed() {
	conn := s.dial()
	s.readFrame(conn) // initial

	sender := bus.NewSender(
		s.logger,
		bus.EventsSocket(s.appConfig.Bus.SocketDir, s.appConfig.Bus.Prefix),
	)
	sender.Emit(bus.NewFrame(bus.FrameStateChange, "worker", map[string]any{
		"current_state": "working",
	}))

	frame := s.readFrame(conn)
	s.Equal(bus.FrameStateChange, frame.Type)
	s.Equal("worker", frame.MachineName)
}

func (s *BroadcastPublicTestSuite) TestRefreshResendsSnapshot() {
	conn := s.dial()
	s.readFrame(conn) // initial

	// Pongs are tolerated and produce nothing.
	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
	s.Require().NoError(err)

	err = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"refresh"}`))
	s.Require().NoError(err)

	frame := s.readFrame(conn)
	s.Equal(bus.FrameInitial, frame.Type)
}

func (s *BroadcastPublicTestSuite) TestMultipleClientsSeeSameFrame() {
	a := s.dial()
	b := s.dial()
	s.readFrame(a)
	s.readFrame(b)

	sender := bus.NewSender(
		s.logger,
		bus.EventsSocket(s.appConfig.Bus.SocketDir, s.appConfig.Bus.Prefix),
	)
	sender.Emit(bus.NewFrame(bus.FrameLog, "worker", map[string]any{
		"message": "hello",
	}))

	s.Equal(bus.FrameLog, s.readFrame(a).Type)
	s.Equal(bus.FrameLog, s.readFrame(b).Type)
}

func (s *BroadcastPublicTestSuite) TestKeepaliveIsJSONPingFrame() {
	cfg := s.appConfig
	cfg.Bus.SocketDir = s.T().TempDir()
	cfg.Broadcaster.PingIntervalSeconds = 1

	srv, err := broadcast.New(cfg, s.logger, s.store)
	s.Require().NoError(err)

	ts := httptest.NewServer(srv.Echo)
	defer func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Stop(ctx)
	}()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	// Keepalives must arrive as JSON data frames a plain read can observe.
	deadline := time.Now().Add(5 * time.Second)
	for {
		s.Require().NoError(conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		s.Require().NoError(err, "no ping frame before deadline")

		var frame bus.Frame
		s.Require().NoError(json.Unmarshal(data, &frame))
		if frame.Type == bus.FramePing {
			return
		}
	}
}

func (s *BroadcastPublicTestSuite) TestMonitorPrintsFrames() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	pr, pw := io.Pipe()
	go func() {
		done <- broadcast.Monitor(ctx, s.wsURL, pw, broadcast.MonitorOptions{})
	}()

	lines := make(chan string, 8)
	go func() {
		dec := json.NewDecoder(pr)
		for {
			var frame bus.Frame
			if err := dec.Decode(&frame); err != nil {
				close(lines)
				return
			}
			lines <- frame.Type
		}
	}()

	select {
	case frameType := <-lines:
		s.Equal(bus.FrameInitial, frameType)
	case <-time.After(5 * time.Second):
		s.FailNow("monitor produced no output")
	}

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.FailNow("monitor did not stop on cancel")
	}
	_ = pw.Close()
}

func (s *BroadcastPublicTestSuite) TestMonitorCompactFiltersByMachine() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	pr, pw := io.Pipe()
	go func() {
		done <- broadcast.Monitor(ctx, s.wsURL, pw, broadcast.MonitorOptions{
			Format:  broadcast.FormatCompact,
			Machine: "worker",
		})
	}()

	lines := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	readLine := func() string {
		select {
		case line := <-lines:
			return line
		case <-time.After(5 * time.Second):
			s.FailNow("monitor produced no line")
			return ""
		}
	}

	// The initial snapshot has no machine name so it passes the filter.
	s.Equal("initial ", readLine())

	sender := bus.NewSender(
		s.logger,
		bus.EventsSocket(s.appConfig.Bus.SocketDir, s.appConfig.Bus.Prefix),
	)
	sender.Emit(bus.NewFrame(bus.FrameLog, "other", map[string]any{"message": "skip"}))
	sender.Emit(bus.NewFrame(bus.FrameStateChange, "worker", map[string]any{
		"current_state": "working",
	}))

	// The "other" frame is filtered out; worker's state change is next.
	s.Equal("state_change worker", readLine())

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.FailNow("monitor did not stop on cancel")
	}
	_ = pw.Close()
}

func (s *BroadcastPublicTestSuite) TestMonitorRejectsUnknownFormat() {
	err := broadcast.Monitor(
		context.Background(),
		s.wsURL,
		io.Discard,
		broadcast.MonitorOptions{Format: "yaml"},
	)
	s.Require().Error(err)
	s.Contains(err.Error(), "unknown format")
}

func TestBroadcastPublicTestSuite(t *testing.T) {
	suite.Run(t, new(BroadcastPublicTestSuite))
}
