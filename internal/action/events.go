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

// checkEvents polls the machine's mailbox for the first unconsumed event of
// a matching type. The event's own type becomes the returned event, so
// transitions key on it directly.
type checkEvents struct {
	raw  definition.ActionConfig
	deps Deps
}

func newCheckEvents(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	return &checkEvents{raw: cfg, deps: deps}, nil
}

func (a *checkEvents) Execute(
	_ context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	noEventsEvent := cfg.GetStringOr("no_events", "no_events")
	consume := cfg.GetBool("consume", true)

	events, err := a.deps.Store.GetPendingEvents(
		a.deps.MachineName,
		cfg.GetStrings("event_types"),
	)
	if err != nil {
		a.deps.Logger.Error(
			"mailbox poll failed",
			slog.String("error", err.Error()),
		)
		setError(ec, err)
		return noEventsEvent
	}
	if len(events) == 0 {
		return noEventsEvent
	}

	event := events[0]
	ec["event_data"] = map[string]any{
		"event_type": event.EventType,
		"source":     event.Source,
		"job_id":     event.JobID,
		"payload":    bus.NormalizePayload(event.Payload),
	}

	if consume {
		if err := a.deps.Store.MarkConsumed(event.ID); err != nil {
			a.deps.Logger.Warn(
				"failed to mark event consumed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	a.deps.Logger.Debug(
		"consumed event",
		slog.String("event_type", event.EventType),
		slog.String("source", event.Source),
	)

	return event.EventType
}

// clearEvents marks matching unconsumed events consumed.
type clearEvents struct {
	raw  definition.ActionConfig
	deps Deps
}

func newClearEvents(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	return &clearEvents{raw: cfg, deps: deps}, nil
}

func (a *clearEvents) Execute(
	_ context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	successEvent := cfg.GetStringOr("success", "success")

	n, err := a.deps.Store.ClearEvents(
		a.deps.MachineName,
		cfg.GetStrings("event_types"),
	)
	if err != nil {
		a.deps.Logger.Warn(
			"failed to clear events",
			slog.String("error", err.Error()),
		)
		setError(ec, err)
		return successEvent
	}

	if n > 0 {
		a.deps.Logger.Debug("cleared events", slog.Int64("count", n))
	}

	return successEvent
}
