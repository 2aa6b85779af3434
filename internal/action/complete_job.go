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

	"github.com/retr0h/fsmd/internal/definition"
	"github.com/retr0h/fsmd/internal/store"
)

// completeJob moves the current (or a named) job to a terminal status and
// merges any configured result data into the job's payload.
type completeJob struct {
	raw  definition.ActionConfig
	deps Deps
}

func newCompleteJob(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	return &completeJob{raw: cfg, deps: deps}, nil
}

func (a *completeJob) Execute(
	_ context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	successEvent := cfg.GetStringOr("success", "job_completed")
	errorEvent := cfg.GetStringOr("error", "error")

	jobID := cfg.GetString("job_id")
	if jobID == "" {
		jobID, _ = ec["job_id"].(string)
	}
	if jobID == "" {
		err := fmt.Errorf("no job to complete")
		setError(ec, err)
		return errorEvent
	}

	status := store.Status(cfg.GetStringOr("status", string(store.StatusCompleted)))

	var resultData map[string]any
	if raw, ok := cfg["result_data"].(map[string]any); ok {
		resultData = raw
	}

	if err := a.deps.Store.CompleteJob(jobID, status, resultData); err != nil {
		a.deps.Logger.Error(
			"failed to complete job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		setError(ec, err)
		return errorEvent
	}

	// The job is no longer ours; drop it from the context.
	delete(ec, "job_id")
	delete(ec, "current_job")

	a.deps.Logger.Info(
		"completed job",
		slog.String("job_id", jobID),
		slog.String("status", string(status)),
	)

	return successEvent
}
