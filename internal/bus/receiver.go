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

package bus

import (
	"errors"
	"log/slog"
	"net"
	"os"
)

const maxDatagram = 64 * 1024

// Receiver binds a unix datagram socket and delivers raw frames on a
// channel. Stale socket files from a previous run are removed on listen.
type Receiver struct {
	logger *slog.Logger
	conn   *net.UnixConn
	frames chan []byte
}

// NewReceiver creates a new Receiver instance.
func NewReceiver(
	logger *slog.Logger,
) *Receiver {
	return &Receiver{
		logger: logger,
		frames: make(chan []byte, 256),
	}
}

// Listen binds the socket path, replacing any stale file.
func (r *Receiver) Listen(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	conn, err := net.ListenUnixgram(
		"unixgram",
		&net.UnixAddr{Name: path, Net: "unixgram"},
	)
	if err != nil {
		return err
	}

	r.conn = conn
	go r.readLoop()

	return nil
}

// Datagrams returns the channel of received frames. The channel closes when
// the receiver shuts down.
func (r *Receiver) Datagrams() <-chan []byte {
	return r.frames
}

// Close unbinds the socket; the read loop drains and closes the channel.
func (r *Receiver) Close() {
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

func (r *Receiver) readLoop() {
	defer close(r.frames)

	buf := make([]byte, maxDatagram)
	for {
		n, err := r.conn.Read(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				r.logger.Warn(
					"datagram read failed",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		select {
		case r.frames <- frame:
		default:
			// Receiver backlogged; drop the frame. Persistent state lives
			// in the store, the fabric is an accelerator.
			r.logger.Warn("datagram channel full, dropping frame")
		}
	}
}
