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
	"encoding/json"
	"log/slog"
	"net"
	"time"
)

const sendTimeout = 250 * time.Millisecond

// Sender fires JSON datagrams at a socket path. Sends are best-effort:
// errors are logged and swallowed, since the persistent store remains the
// source of truth.
type Sender struct {
	logger *slog.Logger
	path   string
}

// NewSender creates a sender for the given socket path.
func NewSender(
	logger *slog.Logger,
	path string,
) *Sender {
	return &Sender{
		logger: logger,
		path:   path,
	}
}

// Send marshals v and writes it as one datagram.
func (s *Sender) Send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn(
			"failed to marshal datagram",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return
	}

	s.SendRaw(data)
}

// SendRaw writes pre-serialized bytes as one datagram.
func (s *Sender) SendRaw(data []byte) {
	conn, err := net.DialUnix(
		"unixgram",
		nil,
		&net.UnixAddr{Name: s.path, Net: "unixgram"},
	)
	if err != nil {
		s.logger.Debug(
			"datagram endpoint unavailable",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug(
			"datagram send failed",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}
}

// Emit implements Emitter over the sender's socket.
func (s *Sender) Emit(frame Frame) {
	s.Send(frame)
}
