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

// Package bus is the local datagram fabric: connectionless JSON frames over
// unix datagram sockets, used for realtime broadcast and low-latency
// inter-machine event delivery.
package bus

import (
	"encoding/json"
	"time"
)

// Frame type values flowing to the broadcaster and UI clients.
const (
	FrameStateChange  = "state_change"
	FrameMachineEvent = "machine_event"
	FrameInitial      = "initial"
	FramePing         = "ping"
	FrameLog          = "log"
	FrameShutdown     = "shutdown"
)

// Frame is a realtime broadcast record.
type Frame struct {
	Type        string  `json:"type"`
	MachineName string  `json:"machine_name,omitempty"`
	Payload     any     `json:"payload,omitempty"`
	Timestamp   float64 `json:"timestamp"`
}

// NewFrame builds a frame stamped with the current time.
func NewFrame(
	frameType string,
	machineName string,
	payload any,
) Frame {
	return Frame{
		Type:        frameType,
		MachineName: machineName,
		Payload:     payload,
		Timestamp:   float64(time.Now().UnixNano()) / float64(time.Second),
	}
}

// EventFrame is an inter-machine event delivered to a machine's own socket.
type EventFrame struct {
	Type    string `json:"type"`
	Source  string `json:"source"`
	JobID   string `json:"job_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Emitter publishes realtime frames. Emission is best-effort everywhere it
// is used; implementations must never block indefinitely.
type Emitter interface {
	Emit(frame Frame)
}

// NormalizePayload returns payloads as objects: JSON-encoded strings are
// parsed once, everything else is left untouched.
func NormalizePayload(payload any) any {
	s, ok := payload.(string)
	if !ok {
		return payload
	}

	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return payload
	}
	return parsed
}
