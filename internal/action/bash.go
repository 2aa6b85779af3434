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
	"fmt"
	"log/slog"
	"strings"

	"github.com/retr0h/fsmd/internal/definition"
)

// bash runs a shell command with the configured timeout. The command string
// is interpolated against the execution context before running.
type bash struct {
	raw  definition.ActionConfig
	deps Deps
}

func newBash(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	if cfg.GetString("command") == "" {
		return nil, fmt.Errorf("bash action requires a command")
	}
	return &bash{raw: cfg, deps: deps}, nil
}

func (a *bash) Execute(
	ctx context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	successEvent := cfg.GetStringOr("success", "completed")
	errorEvent := cfg.GetStringOr("error", "error")
	command := cfg.GetString("command")

	result, err := a.deps.Runner.RunShell(
		ctx,
		command,
		nil,
		cfg.GetInt("timeout"),
	)
	if err != nil {
		a.deps.Logger.Error(
			"command failed to run",
			slog.String("error", err.Error()),
		)
		setError(ec, err)
		ec["last_error_command"] = command
		return errorEvent
	}

	ec["last_output"] = strings.TrimRight(result.Stdout, "\n")
	ec["last_exit_code"] = result.ExitCode

	if result.TimedOut || result.ExitCode != 0 {
		reason := fmt.Sprintf("exit code %d", result.ExitCode)
		if result.TimedOut {
			reason = "timed out"
		}
		if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
			reason = fmt.Sprintf("%s: %s", reason, stderr)
		}

		a.deps.Logger.Warn(
			"command failed",
			slog.String("reason", reason),
			slog.Int64("duration_ms", result.DurationMs),
		)
		ec["last_error"] = reason
		ec["last_error_command"] = command
		return errorEvent
	}

	return successEvent
}
