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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/retr0h/fsmd/internal/definition"
	"github.com/retr0h/fsmd/internal/interp"
)

// startFSM spawns a child runtime process for another machine definition.
// The child is re-execed from our own binary so both sides share one
// installation, and it runs in its own process group so it outlives us.
type startFSM struct {
	raw  definition.ActionConfig
	deps Deps
}

func newStartFSM(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	if cfg.GetString("yaml_path") == "" {
		return nil, fmt.Errorf("start_fsm action requires a yaml_path")
	}
	return &startFSM{raw: cfg, deps: deps}, nil
}

func (a *startFSM) Execute(
	_ context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	successEvent := cfg.GetStringOr("success", "started")
	errorEvent := cfg.GetStringOr("error", "error")

	args, err := childArgs(cfg, ec)
	if err != nil {
		a.deps.Logger.Error(
			"failed to build child invocation",
			slog.String("error", err.Error()),
		)
		setError(ec, err)
		return errorEvent
	}

	self, err := os.Executable()
	if err != nil {
		setError(ec, err)
		return errorEvent
	}

	cmd := exec.Command(self, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		a.deps.Logger.Error(
			"failed to start child runtime",
			slog.String("yaml_path", cfg.GetString("yaml_path")),
			slog.String("error", err.Error()),
		)
		setError(ec, err)
		return errorEvent
	}

	// Reap in the background so the child never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	if key := cfg.GetString("store_pid"); key != "" {
		ec[key] = cmd.Process.Pid
	}

	a.deps.Logger.Info(
		"started child runtime",
		slog.String("yaml_path", cfg.GetString("yaml_path")),
		slog.Int("pid", cmd.Process.Pid),
	)

	return successEvent
}

// childArgs assembles the child runtime's argv from the interpolated
// config: the definition path, the optional machine name, the projected
// initial context, and any extra arguments.
func childArgs(
	cfg definition.ActionConfig,
	ec map[string]any,
) ([]string, error) {
	initialContext, err := buildChildContext(cfg.GetStrings("context_vars"), ec)
	if err != nil {
		return nil, err
	}

	args := []string{"run", cfg.GetString("yaml_path")}
	if name := cfg.GetString("machine_name"); name != "" {
		args = append(args, "--machine-name", name)
	}
	if len(initialContext) > 0 {
		data, err := json.Marshal(initialContext)
		if err != nil {
			return nil, err
		}
		args = append(args, "--initial-context", string(data))
	}

	return append(args, cfg.GetStrings("additional_args")...), nil
}

// buildChildContext projects context vars into the child's initial context.
// Each entry is either "path" or "path as alias", where path may be a
// dotted form like "current_job.id". A bare path keeps the leaf key name.
func buildChildContext(
	vars []string,
	ec map[string]any,
) (map[string]any, error) {
	out := make(map[string]any, len(vars))

	for _, v := range vars {
		src, dst := v, v
		if parts := strings.SplitN(v, " as ", 2); len(parts) == 2 {
			src = strings.TrimSpace(parts[0])
			dst = strings.TrimSpace(parts[1])
		} else if idx := strings.LastIndex(src, "."); idx >= 0 {
			dst = src[idx+1:]
		}

		value, ok := interp.Resolve(src, ec)
		if !ok {
			return nil, fmt.Errorf("context var %q not set", src)
		}
		out[dst] = value
	}

	return out, nil
}
