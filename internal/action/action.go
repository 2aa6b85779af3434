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

// Package action is the uniform action framework: every action is built by
// a registered factory from its YAML config and returns an event name from
// Execute. Failures never propagate as Go errors to the engine; they become
// the action's configured error event with last_error written into the
// execution context.
package action

import (
	"context"
	"log/slog"

	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/definition"
	"github.com/retr0h/fsmd/internal/exec"
	"github.com/retr0h/fsmd/internal/interp"
	"github.com/retr0h/fsmd/internal/store"
)

// Action is one configured unit of work. Execute receives the mutable
// execution context map and returns the name of the event it produced;
// later actions in the same tick see any context mutations.
type Action interface {
	Execute(ctx context.Context, ec map[string]any) string
}

// Factory builds an Action from its raw (uninterpolated) YAML config.
type Factory func(cfg definition.ActionConfig, deps Deps) (Action, error)

// Deps are the collaborators handed to every action factory.
type Deps struct {
	Logger      *slog.Logger
	Store       *store.Store
	Runner      *exec.Exec
	Interp      *interp.Interpolator
	Emitter     bus.Emitter
	MachineName string
	// SocketDir and Prefix locate peer machine sockets for low-latency
	// event delivery.
	SocketDir string
	Prefix    string
}

// interpolate resolves the raw config against the current execution
// context. Actions call this at Execute time so each run sees fresh values.
func (d Deps) interpolate(
	raw definition.ActionConfig,
	ec map[string]any,
) definition.ActionConfig {
	return definition.ActionConfig(d.Interp.Map(map[string]any(raw), ec))
}

// setError records a failure in the execution context.
func setError(ec map[string]any, err error) {
	ec["last_error"] = err.Error()
}

// jobToMap exposes a claimed job to interpolation as a plain mapping.
func jobToMap(job *store.Job) map[string]any {
	return map[string]any{
		"id":               job.ID,
		"type":             job.Type,
		"status":           string(job.Status),
		"priority":         job.Priority,
		"assigned_machine": job.AssignedMachine,
		"data":             job.Data,
		"source_job_id":    job.SourceJobID,
	}
}
