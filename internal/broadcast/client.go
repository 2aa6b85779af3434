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

package broadcast

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/retr0h/fsmd/internal/bus"
)

const (
	clientSendBuffer = 64
	maxInbound       = 4 * 1024
)

// client is one WebSocket consumer. The write pump is the only goroutine
// touching the connection for writes; the hub talks to it through send.
type client struct {
	logger *slog.Logger
	hub    *hub
	conn   *websocket.Conn
	send   chan []byte

	// refresh asks the server to resend the initial snapshot.
	refresh func(*client)

	sendTimeout  time.Duration
	pingInterval time.Duration
}

// writePump drains the send channel onto the wire. Every write carries a
// deadline; one missed deadline kills the connection and the hub evicts
// the client on the resulting read error.
func (c *client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(c.sendTimeout),
				)
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			// Keepalive is a data frame so browser clients see it in the
			// stream; ws control pings are invisible to them.
			ping, err := json.Marshal(bus.NewFrame(bus.FramePing, "", nil))
			if err != nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return
			}
		}
	}
}

// readPump consumes client messages until the connection dies, then
// unregisters. Inbound messages are JSON commands: {"type":"refresh"}
// resends the snapshot, {"type":"pong"} answers a keepalive ping.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.logger.Debug(
				"ignoring malformed client message",
				slog.String("error", err.Error()),
			)
			continue
		}

		switch cmd.Type {
		case "refresh":
			c.refresh(c)
		case "pong":
			// The read itself proves liveness.
		}
	}
}
