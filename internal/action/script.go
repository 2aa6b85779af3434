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

// reserved config keys that never become script environment variables.
var reservedScriptKeys = map[string]bool{
	"type":    true,
	"success": true,
	"error":   true,
	"timeout": true,
}

// script wraps a discovered executable as an action. Config params arrive
// as ACTION_* environment variables; the last non-empty line of stdout, if
// any, overrides the configured success event.
type script struct {
	path string
	raw  definition.ActionConfig
	deps Deps
}

// newScriptFactory returns a factory bound to one executable path.
func newScriptFactory(path string) Factory {
	return func(cfg definition.ActionConfig, deps Deps) (Action, error) {
		return &script{path: path, raw: cfg, deps: deps}, nil
	}
}

func (a *script) Execute(
	ctx context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	successEvent := cfg.GetStringOr("success", "success")
	errorEvent := cfg.GetStringOr("error", "error")

	var env []string
	for key, value := range cfg {
		if reservedScriptKeys[key] {
			continue
		}
		env = append(env, fmt.Sprintf(
			"ACTION_%s=%v",
			strings.ToUpper(key),
			value,
		))
	}

	result, err := a.deps.Runner.RunShell(
		ctx,
		a.path,
		env,
		cfg.GetInt("timeout"),
	)
	if err != nil {
		setError(ec, err)
		return errorEvent
	}

	ec["last_output"] = strings.TrimRight(result.Stdout, "\n")

	if result.TimedOut || result.ExitCode != 0 {
		a.deps.Logger.Warn(
			"user action failed",
			slog.String("script", a.path),
			slog.Int("exit_code", result.ExitCode),
			slog.Bool("timed_out", result.TimedOut),
		)
		ec["last_error"] = strings.TrimSpace(result.Stderr)
		return errorEvent
	}

	if event := lastLine(result.Stdout); event != "" {
		return event
	}
	return successEvent
}

// lastLine returns the final non-empty line of s.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
