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

package engine_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/fsmd/internal/action"
	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/definition"
	"github.com/retr0h/fsmd/internal/engine"
	"github.com/retr0h/fsmd/internal/store"
)

type captureEmitter struct {
	mu     sync.Mutex
	frames []bus.Frame
}

func (c *captureEmitter) Emit(frame bus.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
}

func (c *captureEmitter) byType(frameType string) []bus.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []bus.Frame
	for _, f := range c.frames {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

type EnginePublicTestSuite struct {
	suite.Suite

	logger   *slog.Logger
	store    *store.Store
	registry *action.Registry
	emitter  *captureEmitter
}

func (s *EnginePublicTestSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.emitter = &captureEmitter{}

	var err error
	s.store, err = store.New(
		s.logger,
		filepath.Join(s.T().TempDir(), "state.db"),
		store.WithEmitter(s.emitter),
	)
	s.Require().NoError(err)

	s.registry = action.NewRegistry()
}

func (s *EnginePublicTestSuite) TearDownTest() {
	_ = s.store.Close()
}

func (s *EnginePublicTestSuite) newEngine(
	def *definition.Definition,
	opts ...engine.Option,
) *engine.Engine {
	opts = append(opts,
		engine.WithTickInterval(10*time.Millisecond),
		engine.WithEmitter(s.emitter),
	)
	e, err := engine.New(s.logger, def, s.store, s.registry, opts...)
	s.Require().NoError(err)
	return e
}

// run executes the engine with a deadline generous enough for CI.
func (s *EnginePublicTestSuite) run(e *engine.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.Require().NoError(e.Run(ctx))
	s.Require().NoError(ctx.Err(), "machine did not finish on its own")
}

func workerDefinition() *definition.Definition {
	return &definition.Definition{
		Name:         "worker",
		InitialState: "idle",
		States:       []string{"idle", "working", "done"},
		Events:       []string{"new_job", "job_completed"},
		Transitions: []definition.Transition{
			{From: "idle", To: "working", Event: "new_job"},
			{From: "working", To: "done", Event: "job_completed"},
		},
		Actions: map[string][]definition.ActionConfig{
			"idle": {
				{"type": "check_database_queue", "job_type": "render"},
			},
			"working": {
				{"type": "bash", "command": "echo rendered {prompt}"},
				{"type": "complete_job", "result_data": map[string]any{
					"output": "{last_output}",
				}},
			},
		},
	}
}

func (s *EnginePublicTestSuite) TestWorkerDrainsJob() {
	id, err := s.store.CreateJob(store.CreateJobParams{
		Type: "render",
		Data: map[string]any{"prompt": "sunset"},
	})
	s.Require().NoError(err)

	e := s.newEngine(workerDefinition())
	s.run(e)
	s.Equal("done", e.State())

	job, err := s.store.GetJob(id)
	s.Require().NoError(err)
	s.Equal(store.StatusCompleted, job.Status)
	s.Equal("rendered sunset", job.Data["output"])
}

func (s *EnginePublicTestSuite) TestPresenceLifecycle() {
	_, err := s.store.CreateJob(store.CreateJobParams{Type: "render"})
	s.Require().NoError(err)

	e := s.newEngine(workerDefinition())
	s.Equal("worker", e.MachineName())
	s.run(e)

	// Registered on start, updated per transition, removed on exit.
	changes := s.emitter.byType(bus.FrameStateChange)
	s.Require().NotEmpty(changes)
	s.Len(s.emitter.byType(bus.FrameShutdown), 1)

	state, err := s.store.GetMachineState("worker")
	s.Require().NoError(err)
	s.Nil(state)
}

func (s *EnginePublicTestSuite) TestMachineNameOverride() {
	_, err := s.store.CreateJob(store.CreateJobParams{Type: "render"})
	s.Require().NoError(err)

	e := s.newEngine(
		workerDefinition(),
		engine.WithMachineName("worker-2"),
	)
	s.Equal("worker-2", e.MachineName())
}

func (s *EnginePublicTestSuite) TestTimeoutTransition() {
	def := &definition.Definition{
		Name:         "watchdog",
		InitialState: "waiting",
		States:       []string{"waiting", "expired"},
		Events:       []string{},
		Transitions: []definition.Transition{
			{From: "waiting", To: "expired", Event: "timeout(1)"},
		},
	}

	e := s.newEngine(def)
	start := time.Now()
	s.run(e)

	s.Equal("expired", e.State())
	s.GreaterOrEqual(time.Since(start), time.Second)
}

func (s *EnginePublicTestSuite) TestWildcardTransition() {
	def := &definition.Definition{
		Name:         "alarmist",
		InitialState: "running",
		States:       []string{"running", "halted"},
		Events:       []string{"abort"},
		Transitions: []definition.Transition{
			{From: "*", To: "halted", Event: "abort"},
		},
		Actions: map[string][]definition.ActionConfig{
			"running": {
				{"type": "log", "message": "halting", "success": "abort"},
			},
		},
	}

	e := s.newEngine(def)
	s.run(e)
	s.Equal("halted", e.State())
}

func (s *EnginePublicTestSuite) TestTransitionOverrideActions() {
	def := &definition.Definition{
		Name:         "notifier",
		InitialState: "start",
		States:       []string{"start", "end"},
		Events:       []string{"go"},
		Transitions: []definition.Transition{
			{
				From:  "start",
				To:    "end",
				Event: "go",
				Actions: []definition.ActionConfig{
					{"type": "log", "message": "edge fired"},
				},
			},
		},
		Actions: map[string][]definition.ActionConfig{
			"start": {
				{"type": "log", "message": "ticking", "success": "go"},
			},
		},
	}

	e := s.newEngine(def)
	s.run(e)
	s.Equal("end", e.State())

	var messages []string
	for _, f := range s.emitter.byType(bus.FrameLog) {
		payload, ok := f.Payload.(map[string]any)
		s.Require().True(ok)
		messages = append(messages, payload["message"].(string))
	}
	s.Contains(messages, "edge fired")
}

func (s *EnginePublicTestSuite) TestCancelStopsIdleMachine() {
	e := s.newEngine(workerDefinition())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.Require().NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("machine did not stop on cancel")
	}
}

func (s *EnginePublicTestSuite) TestDatagramWakesIdleMachine() {
	socketDir := s.T().TempDir()

	def := &definition.Definition{
		Name:         "listener",
		InitialState: "waiting",
		States:       []string{"waiting", "notified"},
		Events:       []string{"poke"},
		Transitions: []definition.Transition{
			{From: "waiting", To: "notified", Event: "poke"},
		},
		Actions: map[string][]definition.ActionConfig{
			"waiting": {
				{"type": "check_events"},
			},
		},
	}

	e := s.newEngine(
		def,
		engine.WithSocket(socketDir, "fsmd"),
		engine.WithTickInterval(10*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)

	// Mailbox row first, then the datagram nudge; the long poll interval
	// means only the nudge can explain a prompt transition.
	_, err := s.store.SendEvent("listener", "test", "poke", "", nil)
	s.Require().NoError(err)

	sender := bus.NewSender(
		s.logger,
		bus.MachineSocket(socketDir, "fsmd", "listener"),
	)
	sender.Send(bus.EventFrame{Type: "poke", Source: "test"})

	select {
	case err := <-done:
		s.Require().NoError(err)
		s.Equal("notified", e.State())
	case <-time.After(5 * time.Second):
		s.Fail("datagram did not wake the machine")
	}
}

func (s *EnginePublicTestSuite) TestNewRejectsUnknownAction() {
	def := &definition.Definition{
		Name:         "broken",
		InitialState: "start",
		States:       []string{"start"},
		Actions: map[string][]definition.ActionConfig{
			"start": {{"type": "bogus"}},
		},
	}

	_, err := engine.New(s.logger, def, s.store, s.registry)
	s.Require().Error(err)
	s.ErrorContains(err, "unknown action type")
}

func (s *EnginePublicTestSuite) TestInitialContextSeedsTemplates() {
	def := &definition.Definition{
		Name:         "seeded",
		InitialState: "start",
		States:       []string{"start", "end"},
		Events:       []string{"go"},
		Transitions: []definition.Transition{
			{From: "start", To: "end", Event: "go"},
		},
		Actions: map[string][]definition.ActionConfig{
			"start": {
				{"type": "log", "message": "batch {batch_id}", "success": "go"},
			},
		},
	}

	e := s.newEngine(
		def,
		engine.WithInitialContext(map[string]any{"batch_id": "b-42"}),
	)
	s.run(e)

	frames := s.emitter.byType(bus.FrameLog)
	s.Require().NotEmpty(frames)
	payload, ok := frames[0].Payload.(map[string]any)
	s.Require().True(ok)
	s.Equal("batch b-42", payload["message"])
}

func TestEnginePublicTestSuite(t *testing.T) {
	suite.Run(t, new(EnginePublicTestSuite))
}
