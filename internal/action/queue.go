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

	"github.com/retr0h/fsmd/internal/definition"
)

// checkDatabaseQueue atomically claims the next matching pending job and
// flattens its payload into the execution context.
type checkDatabaseQueue struct {
	raw  definition.ActionConfig
	deps Deps
}

func newCheckDatabaseQueue(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	return &checkDatabaseQueue{raw: cfg, deps: deps}, nil
}

func (a *checkDatabaseQueue) Execute(
	_ context.Context,
	ec map[string]any,
) string {
	cfg := a.deps.interpolate(a.raw, ec)

	successEvent := cfg.GetStringOr("success", "new_job")
	noJobsEvent := cfg.GetStringOr("no_jobs", "no_jobs")

	job, err := a.deps.Store.GetNextJob(
		cfg.GetString("job_type"),
		cfg.GetString("machine_type"),
	)
	if err != nil {
		a.deps.Logger.Error(
			"queue poll failed",
			slog.String("error", err.Error()),
		)
		setError(ec, err)
		return noJobsEvent
	}
	if job == nil {
		return noJobsEvent
	}

	ec["job_id"] = job.ID
	ec["current_job"] = jobToMap(job)
	// Flatten the payload's top-level keys into the context root so
	// templates can say {prompt} instead of {current_job.data.prompt}.
	for k, v := range job.Data {
		ec[k] = v
	}

	a.deps.Logger.Info(
		"claimed job",
		slog.String("job_id", job.ID),
		slog.String("job_type", job.Type),
	)

	return successEvent
}
