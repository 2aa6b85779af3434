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

package action

import (
	"context"
	"log/slog"

	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/definition"
)

// sendEvent delivers an event to another machine: a mailbox row first (the
// durable path), then a datagram at the target's socket so an idle peer
// wakes up without waiting for its next poll.
type sendEvent struct {
	raw  definition.ActionConfig
	deps Deps
}

func newSendEvent(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	return &sendEvent{raw: cfg, deps: deps}, nil
}

func (a *sendEvent) Execute(
	_ context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	successEvent := cfg.GetStringOr("success", "event_sent")
	errorEvent := cfg.GetStringOr("error", "error")

	// Both spellings are accepted in definitions.
	target := cfg.GetStringOr("target_machine", cfg.GetString("target"))
	eventType := cfg.GetString("event_type")
	jobID := cfg.GetString("job_id")
	payload := cfg["payload"]

	_, err := a.deps.Store.SendEvent(
		target,
		a.deps.MachineName,
		eventType,
		jobID,
		payload,
	)
	if err != nil {
		a.deps.Logger.Error(
			"failed to send event",
			slog.String("target", target),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		setError(ec, err)
		return errorEvent
	}

	// Best-effort nudge; the mailbox row already guarantees delivery.
	sender := bus.NewSender(
		a.deps.Logger,
		bus.MachineSocket(a.deps.SocketDir, a.deps.Prefix, target),
	)
	sender.Send(bus.EventFrame{
		Type:    eventType,
		Source:  a.deps.MachineName,
		JobID:   jobID,
		Payload: payload,
	})

	a.deps.Logger.Info(
		"sent event",
		slog.String("target", target),
		slog.String("event_type", eventType),
	)

	return successEvent
}
