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

// Package engine drives one machine: it runs the current state's actions
// each tick, matches returned events against the definition's transitions,
// and records every state change in the store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/retr0h/fsmd/internal/action"
	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/definition"
	"github.com/retr0h/fsmd/internal/exec"
	"github.com/retr0h/fsmd/internal/interp"
	"github.com/retr0h/fsmd/internal/store"
)

const (
	defaultTickInterval = 100 * time.Millisecond
	defaultHeartbeat    = 5 * time.Second
)

// Engine executes one machine definition against the shared store.
type Engine struct {
	logger *slog.Logger
	def    *definition.Definition
	store  *store.Store

	machineName    string
	socketDir      string
	prefix         string
	initialContext map[string]any
	tickInterval   time.Duration
	heartbeat      time.Duration
	emitter        bus.Emitter

	receiver     *bus.Receiver
	stateActions map[string][]action.Action
	overrides    map[string][]action.Action

	state   string
	entered time.Time
	ec      map[string]any
}

// Option configures the Engine.
type Option func(*Engine)

// WithMachineName overrides the runtime machine name.
func WithMachineName(name string) Option {
	return func(e *Engine) { e.machineName = name }
}

// WithInitialContext seeds the execution context before the first tick.
func WithInitialContext(ctx map[string]any) Option {
	return func(e *Engine) { e.initialContext = ctx }
}

// WithSocket binds the machine's datagram socket under dir with the given
// path prefix. Without it the engine runs poll-only.
func WithSocket(dir, prefix string) Option {
	return func(e *Engine) {
		e.socketDir = dir
		e.prefix = prefix
	}
}

// WithEmitter publishes realtime frames produced by actions.
func WithEmitter(emitter bus.Emitter) Option {
	return func(e *Engine) { e.emitter = emitter }
}

// WithTickInterval sets the idle poll interval.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// WithHeartbeat sets how often last_activity is refreshed while idle.
func WithHeartbeat(d time.Duration) Option {
	return func(e *Engine) { e.heartbeat = d }
}

// New creates a new Engine instance. All actions the definition declares
// are built up front so misconfigurations surface before the machine runs.
func New(
	logger *slog.Logger,
	def *definition.Definition,
	st *store.Store,
	registry *action.Registry,
	opts ...Option,
) (*Engine, error) {
	e := &Engine{
		logger:       logger,
		def:          def,
		store:        st,
		tickInterval: defaultTickInterval,
		heartbeat:    defaultHeartbeat,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.machineName = def.MachineName(e.machineName)

	deps := action.Deps{
		Logger:      logger,
		Store:       st,
		Runner:      exec.New(logger),
		Interp:      interp.New(logger),
		Emitter:     e.emitter,
		MachineName: e.machineName,
		SocketDir:   e.socketDir,
		Prefix:      e.prefix,
	}

	e.stateActions = make(map[string][]action.Action, len(def.States))
	for _, state := range def.States {
		actions, err := buildActions(registry, def.StateActions(state), deps)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", state, err)
		}
		e.stateActions[state] = actions
	}

	e.overrides = make(map[string][]action.Action)
	for _, t := range def.Transitions {
		if len(t.Actions) == 0 {
			continue
		}
		actions, err := buildActions(registry, t.Actions, deps)
		if err != nil {
			return nil, fmt.Errorf(
				"transition %s -> %s: %w", t.From, t.To, err,
			)
		}
		e.overrides[overrideKey(t)] = actions
	}

	return e, nil
}

// MachineName returns the resolved runtime machine name.
func (e *Engine) MachineName() string {
	return e.machineName
}

// State returns the current state name.
func (e *Engine) State() string {
	return e.state
}

// Run executes the machine until the context is cancelled or a terminal
// state (no actions, no outgoing transitions) is reached. The machine's
// presence row is registered on start and removed on exit.
func (e *Engine) Run(ctx context.Context) error {
	e.state = e.def.InitialState
	e.entered = time.Now()

	e.ec = map[string]any{"machine_name": e.machineName}
	for k, v := range e.initialContext {
		e.ec[k] = v
	}

	var wake <-chan []byte
	if e.socketDir != "" {
		e.receiver = bus.NewReceiver(e.logger)
		path := bus.MachineSocket(e.socketDir, e.prefix, e.machineName)
		if err := e.receiver.Listen(path); err != nil {
			return fmt.Errorf("failed to bind machine socket: %w", err)
		}
		defer e.receiver.Close()
		wake = e.receiver.Datagrams()
	}

	e.publishState()
	defer func() {
		if err := e.store.DeleteMachineState(e.machineName); err != nil {
			e.logger.Warn(
				"failed to deregister machine",
				slog.String("error", err.Error()),
			)
		}
	}()

	e.logger.Info(
		"machine started",
		slog.String("machine", e.machineName),
		slog.String("state", e.state),
	)

	lastTouch := time.Now()
	for {
		if ctx.Err() != nil {
			e.logger.Info("machine stopping", slog.String("machine", e.machineName))
			return nil
		}

		if e.tick(ctx) {
			lastTouch = time.Now()
			continue
		}

		if e.terminal() {
			e.logger.Info(
				"machine reached terminal state",
				slog.String("machine", e.machineName),
				slog.String("state", e.state),
			)
			return nil
		}

		if time.Since(lastTouch) >= e.heartbeat {
			if err := e.store.TouchMachineState(e.machineName); err != nil {
				e.logger.Warn(
					"heartbeat failed",
					slog.String("error", err.Error()),
				)
			}
			lastTouch = time.Now()
		}

		// Idle. Sleep until the next poll, or earlier when a datagram
		// arrives. The datagram is a wakeup only; its mailbox row was
		// written by the sender and will be found by the next poll.
		select {
		case <-ctx.Done():
		case <-wake:
		case <-time.After(e.tickInterval):
		}
	}
}

// tick runs the current state's actions once. The first returned event that
// matches a candidate transition fires it and ends the tick; when nothing
// fires, an elapsed timeout transition may fire instead.
func (e *Engine) tick(ctx context.Context) bool {
	for _, act := range e.stateActions[e.state] {
		if ctx.Err() != nil {
			return false
		}

		event := act.Execute(ctx, e.ec)
		if event == "" {
			continue
		}

		if t, ok := e.match(event); ok {
			e.fire(ctx, t, event)
			return true
		}
	}

	if t, ok := e.timedOut(); ok {
		e.fire(ctx, t, t.Event)
		return true
	}

	return false
}

// match finds the first candidate transition fired by event. Timeout
// transitions never match action events.
func (e *Engine) match(event string) (definition.Transition, bool) {
	for _, t := range e.def.CandidateTransitions(e.state) {
		if _, isTimeout := definition.ParseTimeout(t.Event); isTimeout {
			continue
		}
		if t.Event == event {
			return t, true
		}
	}
	return definition.Transition{}, false
}

// timedOut reports the first timeout transition whose deadline has passed
// since the state was entered.
func (e *Engine) timedOut() (definition.Transition, bool) {
	for _, t := range e.def.CandidateTransitions(e.state) {
		seconds, ok := definition.ParseTimeout(t.Event)
		if !ok {
			continue
		}
		if time.Since(e.entered) >= time.Duration(seconds)*time.Second {
			return t, true
		}
	}
	return definition.Transition{}, false
}

// fire moves the machine to the transition's destination and runs the
// transition's own actions, if any. Events those actions return are not
// matched; they are side-effect hooks for the edge itself.
func (e *Engine) fire(
	ctx context.Context,
	t definition.Transition,
	event string,
) {
	from := e.state
	e.state = t.To
	e.entered = time.Now()

	e.logger.Info(
		"transition",
		slog.String("machine", e.machineName),
		slog.String("from", from),
		slog.String("to", t.To),
		slog.String("event", event),
	)

	e.publishState()

	for _, act := range e.overrides[overrideKey(t)] {
		if ctx.Err() != nil {
			return
		}
		if hookEvent := act.Execute(ctx, e.ec); hookEvent != "" {
			e.logger.Debug(
				"transition hook event discarded",
				slog.String("machine", e.machineName),
				slog.String("event", hookEvent),
			)
		}
	}
}

// terminal reports whether the current state can never leave: no actions to
// produce events and no outgoing transitions.
func (e *Engine) terminal() bool {
	return len(e.stateActions[e.state]) == 0 &&
		len(e.def.CandidateTransitions(e.state)) == 0
}

// publishState upserts the machine's presence row; the store mirrors the
// change onto the realtime stream.
func (e *Engine) publishState() {
	err := e.store.UpsertMachineState(store.MachineState{
		MachineName:  e.machineName,
		ConfigType:   e.def.Name,
		CurrentState: e.state,
		PID:          os.Getpid(),
		LastActivity: time.Now(),
	})
	if err != nil {
		e.logger.Warn(
			"failed to publish machine state",
			slog.String("error", err.Error()),
		)
	}
}

func buildActions(
	registry *action.Registry,
	configs []definition.ActionConfig,
	deps action.Deps,
) ([]action.Action, error) {
	actions := make([]action.Action, 0, len(configs))
	for _, cfg := range configs {
		a, err := registry.Build(cfg, deps)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func overrideKey(t definition.Transition) string {
	return t.From + "\x00" + t.Event
}
