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

// Package broadcast is the realtime WebSocket fan-out: it receives frames
// from the datagram fabric and relays them to every connected UI client.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/config"
	"github.com/retr0h/fsmd/internal/store"
)

const snapshotFrames = 100

// Server owns the WebSocket endpoint, the hub, and the fabric receiver.
type Server struct {
	Echo *echo.Echo

	logger    *slog.Logger
	appConfig config.Config
	store     *store.Store
	hub       *hub
	receiver  *bus.Receiver
	upgrader  websocket.Upgrader

	sendTimeout  time.Duration
	pingInterval time.Duration
}

// New initialize a new Server, bind the fabric socket, and start the hub.
func New(
	appConfig config.Config,
	logger *slog.Logger,
	st *store.Store,
) (*Server, error) {
	e := echo.New()
	e.HideBanner = true

	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		Echo:      e,
		logger:    logger,
		appConfig: appConfig,
		store:     st,
		hub: newHub(
			logger,
			time.Duration(appConfig.Broadcaster.WatchdogSeconds)*time.Second,
		),
		upgrader: websocket.Upgrader{
			// The UI is served from another origin in development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendTimeout:  time.Duration(appConfig.Broadcaster.SendTimeoutSeconds) * time.Second,
		pingInterval: time.Duration(appConfig.Broadcaster.PingIntervalSeconds) * time.Second,
	}

	e.GET("/ws/events", s.handleWS)

	s.receiver = bus.NewReceiver(logger)
	socketPath := bus.EventsSocket(appConfig.Bus.SocketDir, appConfig.Bus.Prefix)
	if err := s.receiver.Listen(socketPath); err != nil {
		return nil, fmt.Errorf("failed to bind events socket: %w", err)
	}

	go s.hub.run()
	go s.hub.watch()
	go s.pump()

	return s, nil
}

// Start starts the Echo server with the configured port.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting broadcaster")
		listenAddr := fmt.Sprintf(":%d", s.appConfig.Broadcaster.Port)
		if err := s.Echo.Start(listenAddr); err != nil && err != http.ErrServerClosed {
			s.logger.Error(
				"failed to start broadcaster",
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Stop gracefully shuts down the Echo server, the receiver, and the hub.
func (s *Server) Stop(
	ctx context.Context,
) {
	s.logger.Info("stopping broadcaster")

	if err := s.Echo.Shutdown(ctx); err != nil {
		s.logger.Error(
			"broadcaster shutdown failed",
			slog.String("error", err.Error()),
		)
	}

	s.receiver.Close()
	s.hub.stop()
}

// pump relays fabric datagrams into the hub verbatim. Frames arrive
// already serialized; they are never decoded on the fan-out path.
func (s *Server) pump() {
	for data := range s.receiver.Datagrams() {
		select {
		case s.hub.broadcast <- data:
		default:
			s.logger.Warn("broadcast backlog full, dropping frame")
		}
	}
}

func (s *Server) handleWS(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{
		logger:       s.logger,
		hub:          s.hub,
		conn:         conn,
		send:         make(chan []byte, clientSendBuffer),
		refresh:      s.refreshSnapshot,
		sendTimeout:  s.sendTimeout,
		pingInterval: s.pingInterval,
	}

	s.sendSnapshot(cl)
	s.hub.register <- cl

	go cl.writePump()
	go cl.readPump()

	return nil
}

// sendSnapshot queues the initial frame before the client is registered;
// nothing else writes to the send channel yet.
func (s *Server) sendSnapshot(cl *client) {
	data, ok := s.snapshot()
	if !ok {
		return
	}

	select {
	case cl.send <- data:
	default:
		s.logger.Warn("client too slow for snapshot")
	}
}

// refreshSnapshot re-sends the snapshot to an already-registered client,
// routed through the hub so the hub stays the only writer.
func (s *Server) refreshSnapshot(cl *client) {
	data, ok := s.snapshot()
	if !ok {
		return
	}

	select {
	case s.hub.direct <- directMsg{c: cl, data: data}:
	default:
		s.logger.Warn("dropping snapshot refresh, hub busy")
	}
}

// initialFrame is the first message every client receives: the live
// machines and the recent frame history carried at the top level.
type initialFrame struct {
	Type      string                 `json:"type"`
	Machines  []store.MachineState   `json:"machines"`
	Recent    []store.RealtimeRecord `json:"recent"`
	Timestamp float64                `json:"timestamp"`
}

// snapshot serializes the initial frame: every live machine plus the
// recent frame history, so a reconnecting client can rebuild its view.
func (s *Server) snapshot() ([]byte, bool) {
	machines, err := s.store.ListMachineStates()
	if err != nil {
		s.logger.Error(
			"failed to list machines for snapshot",
			slog.String("error", err.Error()),
		)
		machines = nil
	}

	recent, err := s.store.ListRecentFrames(snapshotFrames)
	if err != nil {
		s.logger.Error(
			"failed to list recent frames for snapshot",
			slog.String("error", err.Error()),
		)
		recent = nil
	}

	data, err := json.Marshal(initialFrame{
		Type:      bus.FrameInitial,
		Machines:  machines,
		Recent:    recent,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	})
	if err != nil {
		s.logger.Error(
			"failed to marshal snapshot",
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	return data, true
}
