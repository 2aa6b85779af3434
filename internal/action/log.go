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

// logAction writes an interpolated message to the logger and mirrors it to
// the realtime stream as a log frame.
type logAction struct {
	raw  definition.ActionConfig
	deps Deps
}

func newLog(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	return &logAction{raw: cfg, deps: deps}, nil
}

func (a *logAction) Execute(
	_ context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	message := cfg.GetString("message")
	level := cfg.GetStringOr("level", "info")

	attrs := []any{slog.String("machine", a.deps.MachineName)}
	switch level {
	case "debug":
		a.deps.Logger.Debug(message, attrs...)
	case "warn", "warning":
		a.deps.Logger.Warn(message, attrs...)
	case "error":
		a.deps.Logger.Error(message, attrs...)
	default:
		a.deps.Logger.Info(message, attrs...)
	}

	if a.deps.Emitter != nil {
		a.deps.Emitter.Emit(
			bus.NewFrame(bus.FrameLog, a.deps.MachineName, map[string]any{
				"message": message,
				"level":   level,
			}),
		)
	}

	return cfg.GetStringOr("success", "success")
}
