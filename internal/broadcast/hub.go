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
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

const watchdogProbe = time.Second

// hub fans frames out to connected clients. Frames are serialized exactly
// once before entering the broadcast channel; the hub only ever moves
// bytes. A client whose send buffer is full gets evicted rather than
// allowed to stall the loop.
type hub struct {
	logger *slog.Logger

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	direct     chan directMsg
	done       chan struct{}

	// heartbeat is refreshed on every loop iteration; the watchdog fires
	// when it goes stale.
	heartbeat atomic.Int64
	watchdog  time.Duration
}

// directMsg targets one registered client. Routing it through the hub loop
// keeps the hub the only writer to a registered client's send channel.
type directMsg struct {
	c    *client
	data []byte
}

func newHub(
	logger *slog.Logger,
	watchdog time.Duration,
) *hub {
	return &hub{
		logger:     logger,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan directMsg, 16),
		done:       make(chan struct{}),
		watchdog:   watchdog,
	}
}

// run is the single owner of the clients map.
func (h *hub) run() {
	probe := time.NewTicker(watchdogProbe)
	defer probe.Stop()

	h.beat()
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug(
				"client connected",
				slog.Int("clients", len(h.clients)),
			)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug(
					"client disconnected",
					slog.Int("clients", len(h.clients)),
				)
			}

		case m := <-h.direct:
			if _, ok := h.clients[m.c]; ok {
				select {
				case m.c.send <- m.data:
				default:
					h.logger.Warn("evicting slow client")
					h.drop(m.c)
				}
			}

		case data := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow consumer; evict instead of blocking the loop.
					h.logger.Warn("evicting slow client")
					h.drop(c)
				}
			}

		case <-probe.C:
		}

		h.beat()
	}
}

// watch dumps all goroutine stacks when the loop stops making progress,
// then keeps quiet until it recovers.
func (h *hub) watch() {
	ticker := time.NewTicker(watchdogProbe)
	defer ticker.Stop()

	stalled := false
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		age := time.Since(time.Unix(0, h.heartbeat.Load()))
		if age < h.watchdog {
			stalled = false
			continue
		}
		if stalled {
			continue
		}
		stalled = true

		buf := make([]byte, 1<<20)
		n := runtime.Stack(buf, true)
		h.logger.Error(
			"broadcast loop stalled",
			slog.Duration("age", age),
			slog.String("stacks", string(buf[:n])),
		)
	}
}

func (h *hub) beat() {
	h.heartbeat.Store(time.Now().UnixNano())
}

func (h *hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}

func (h *hub) stop() {
	close(h.done)
}
