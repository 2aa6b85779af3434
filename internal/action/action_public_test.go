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

package action_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/fsmd/internal/action"
	"github.com/retr0h/fsmd/internal/definition"
	"github.com/retr0h/fsmd/internal/exec"
	"github.com/retr0h/fsmd/internal/interp"
	"github.com/retr0h/fsmd/internal/store"
)

type ActionPublicTestSuite struct {
	suite.Suite

	logger   *slog.Logger
	store    *store.Store
	registry *action.Registry
	deps     action.Deps
}

func (s *ActionPublicTestSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.store, err = store.New(
		s.logger,
		filepath.Join(s.T().TempDir(), "state.db"),
	)
	s.Require().NoError(err)

	s.registry = action.NewRegistry()
	s.deps = action.Deps{
		Logger:      s.logger,
		Store:       s.store,
		Runner:      exec.New(s.logger),
		Interp:      interp.New(s.logger),
		MachineName: "worker",
		SocketDir:   s.T().TempDir(),
		Prefix:      "fsmd",
	}
}

func (s *ActionPublicTestSuite) TearDownTest() {
	_ = s.store.Close()
}

func (s *ActionPublicTestSuite) build(cfg definition.ActionConfig) action.Action {
	a, err := s.registry.Build(cfg, s.deps)
	s.Require().NoError(err)
	return a
}

func (s *ActionPublicTestSuite) TestRegistryKnowsBuiltins() {
	types := s.registry.Types()

	s.Contains(types, "check_database_queue")
	s.Contains(types, "check_events")
	s.Contains(types, "send_event")
	s.Contains(types, "bash")
	s.Contains(types, "log")
	s.Contains(types, "start_fsm")
	s.Contains(types, "complete_job")
	s.Contains(types, "clear_events")
}

func (s *ActionPublicTestSuite) TestBuildUnknownType() {
	_, err := s.registry.Build(
		definition.ActionConfig{"type": "bogus"},
		s.deps,
	)
	s.Require().Error(err)
	s.ErrorContains(err, "unknown action type")
}

func (s *ActionPublicTestSuite) TestCheckDatabaseQueueEmpty() {
	a := s.build(definition.ActionConfig{"type": "check_database_queue"})

	ec := map[string]any{}
	s.Equal("no_jobs", a.Execute(context.Background(), ec))
	s.NotContains(ec, "job_id")
}

func (s *ActionPublicTestSuite) TestCheckDatabaseQueueClaims() {
	id, err := s.store.CreateJob(store.CreateJobParams{
		Type: "render",
		Data: map[string]any{"prompt": "sunset"},
	})
	s.Require().NoError(err)

	a := s.build(definition.ActionConfig{
		"type":     "check_database_queue",
		"job_type": "render",
	})

	ec := map[string]any{}
	s.Equal("new_job", a.Execute(context.Background(), ec))
	s.Equal(id, ec["job_id"])
	s.Equal("sunset", ec["prompt"])

	current, ok := ec["current_job"].(map[string]any)
	s.Require().True(ok)
	s.Equal("render", current["type"])

	job, err := s.store.GetJob(id)
	s.Require().NoError(err)
	s.Equal(store.StatusProcessing, job.Status)
}

func (s *ActionPublicTestSuite) TestCheckEventsNone() {
	a := s.build(definition.ActionConfig{"type": "check_events"})

	s.Equal("no_events", a.Execute(context.Background(), map[string]any{}))
}

func (s *ActionPublicTestSuite) TestCheckEventsConsumes() {
	_, err := s.store.SendEvent(
		"worker", "controller", "approved", "job-1",
		map[string]any{"reviewer": "ops"},
	)
	s.Require().NoError(err)

	a := s.build(definition.ActionConfig{"type": "check_events"})

	ec := map[string]any{}
	s.Equal("approved", a.Execute(context.Background(), ec))

	eventData, ok := ec["event_data"].(map[string]any)
	s.Require().True(ok)
	s.Equal("controller", eventData["source"])
	s.Equal("job-1", eventData["job_id"])

	payload, ok := eventData["payload"].(map[string]any)
	s.Require().True(ok)
	s.Equal("ops", payload["reviewer"])

	// Consumed by default, so a second poll comes up empty.
	s.Equal("no_events", a.Execute(context.Background(), map[string]any{}))
}

func (s *ActionPublicTestSuite) TestCheckEventsPeek() {
	_, err := s.store.SendEvent("worker", "controller", "approved", "", nil)
	s.Require().NoError(err)

	a := s.build(definition.ActionConfig{
		"type":    "check_events",
		"consume": false,
	})

	s.Equal("approved", a.Execute(context.Background(), map[string]any{}))
	s.Equal("approved", a.Execute(context.Background(), map[string]any{}))
}

func (s *ActionPublicTestSuite) TestClearEvents() {
	_, err := s.store.SendEvent("worker", "controller", "stale", "", nil)
	s.Require().NoError(err)

	a := s.build(definition.ActionConfig{"type": "clear_events"})
	s.Equal("success", a.Execute(context.Background(), map[string]any{}))

	events, err := s.store.GetPendingEvents("worker", nil)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *ActionPublicTestSuite) TestSendEventWritesMailbox() {
	a := s.build(definition.ActionConfig{
		"type":       "send_event",
		"target":     "controller",
		"event_type": "done",
		"job_id":     "{job_id}",
		"payload":    map[string]any{"result": "{last_output}"},
	})

	ec := map[string]any{"job_id": "job-7", "last_output": "ok"}
	s.Equal("event_sent", a.Execute(context.Background(), ec))

	events, err := s.store.GetPendingEvents("controller", nil)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("done", events[0].EventType)
	s.Equal("worker", events[0].Source)
	s.Equal("job-7", events[0].JobID)

	payload, ok := events[0].Payload.(map[string]any)
	s.Require().True(ok)
	s.Equal("ok", payload["result"])
}

func (s *ActionPublicTestSuite) TestSendEventAcceptsTargetMachineKey() {
	a := s.build(definition.ActionConfig{
		"type":           "send_event",
		"target_machine": "controller",
		"event_type":     "done",
	})

	s.Equal("event_sent", a.Execute(context.Background(), map[string]any{}))

	events, err := s.store.GetPendingEvents("controller", nil)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("done", events[0].EventType)
}

func (s *ActionPublicTestSuite) TestBashSuccess() {
	a := s.build(definition.ActionConfig{
		"type":    "bash",
		"command": "echo {greeting}",
	})

	ec := map[string]any{"greeting": "hello"}
	s.Equal("completed", a.Execute(context.Background(), ec))
	s.Equal("hello", ec["last_output"])
	s.Equal(0, ec["last_exit_code"])
}

func (s *ActionPublicTestSuite) TestBashFailure() {
	a := s.build(definition.ActionConfig{
		"type":    "bash",
		"command": "exit 3",
		"error":   "command_failed",
	})

	ec := map[string]any{}
	s.Equal("command_failed", a.Execute(context.Background(), ec))
	s.Contains(ec["last_error"], "exit code 3")
	s.Equal("exit 3", ec["last_error_command"])
}

func (s *ActionPublicTestSuite) TestBashRequiresCommand() {
	_, err := s.registry.Build(
		definition.ActionConfig{"type": "bash"},
		s.deps,
	)
	s.Require().Error(err)
}

func (s *ActionPublicTestSuite) TestLogReturnsSuccess() {
	a := s.build(definition.ActionConfig{
		"type":    "log",
		"message": "working on {job_id}",
		"success": "logged",
	})

	s.Equal("logged", a.Execute(context.Background(), map[string]any{
		"job_id": "job-1",
	}))
}

func (s *ActionPublicTestSuite) TestCompleteJobFromContext() {
	id, err := s.store.CreateJob(store.CreateJobParams{Type: "render"})
	s.Require().NoError(err)
	_, err = s.store.GetNextJob("render", "")
	s.Require().NoError(err)

	a := s.build(definition.ActionConfig{
		"type":        "complete_job",
		"result_data": map[string]any{"output": "{last_output}"},
	})

	ec := map[string]any{"job_id": id, "last_output": "artifact.png"}
	s.Equal("job_completed", a.Execute(context.Background(), ec))
	s.NotContains(ec, "job_id")
	s.NotContains(ec, "current_job")

	job, err := s.store.GetJob(id)
	s.Require().NoError(err)
	s.Equal(store.StatusCompleted, job.Status)
	s.Equal("artifact.png", job.Data["output"])
}

func (s *ActionPublicTestSuite) TestCompleteJobWithoutJob() {
	a := s.build(definition.ActionConfig{"type": "complete_job"})

	ec := map[string]any{}
	s.Equal("error", a.Execute(context.Background(), ec))
	s.Contains(ec["last_error"], "no job")
}

func (s *ActionPublicTestSuite) TestStartFSMRequiresYamlPath() {
	_, err := s.registry.Build(
		definition.ActionConfig{"type": "start_fsm"},
		s.deps,
	)
	s.Require().Error(err)
}

func (s *ActionPublicTestSuite) TestDiscoverRegistersScripts() {
	dir := s.T().TempDir()
	scriptPath := filepath.Join(dir, "classify.sh")
	scriptBody := "#!/bin/bash\necho \"urgent\"\n"
	s.Require().NoError(os.WriteFile(scriptPath, []byte(scriptBody), 0o755))

	err := s.registry.Discover(afero.NewOsFs(), s.logger, dir)
	s.Require().NoError(err)
	s.Contains(s.registry.Types(), "classify")

	a := s.build(definition.ActionConfig{"type": "classify"})
	s.Equal("urgent", a.Execute(context.Background(), map[string]any{}))
}

func (s *ActionPublicTestSuite) TestDiscoverMissingDir() {
	err := s.registry.Discover(
		afero.NewOsFs(),
		s.logger,
		filepath.Join(s.T().TempDir(), "nope"),
	)
	s.Require().NoError(err)
}

func (s *ActionPublicTestSuite) TestScriptFailure() {
	dir := s.T().TempDir()
	scriptPath := filepath.Join(dir, "flaky")
	scriptBody := "#!/bin/bash\necho boom >&2\nexit 1\n"
	s.Require().NoError(os.WriteFile(scriptPath, []byte(scriptBody), 0o755))

	s.Require().NoError(s.registry.Discover(afero.NewOsFs(), s.logger, dir))

	a := s.build(definition.ActionConfig{
		"type":  "flaky",
		"error": "script_failed",
	})

	ec := map[string]any{}
	s.Equal("script_failed", a.Execute(context.Background(), ec))
	s.Equal("boom", ec["last_error"])
}

func TestActionPublicTestSuite(t *testing.T) {
	suite.Run(t, new(ActionPublicTestSuite))
}
