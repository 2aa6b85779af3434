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
	"fmt"
	"sort"

	"github.com/retr0h/fsmd/internal/definition"
)

// Registry maps YAML action type names to factories. Built-ins are loaded
// on construction; user actions are added by Register or Discover.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry pre-loaded with the built-in actions.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}

	r.Register("check_database_queue", newCheckDatabaseQueue)
	r.Register("check_events", newCheckEvents)
	r.Register("send_event", newSendEvent)
	r.Register("bash", newBash)
	r.Register("log", newLog)
	r.Register("start_fsm", newStartFSM)
	r.Register("complete_job", newCompleteJob)
	r.Register("clear_events", newClearEvents)

	return r
}

// Register adds (or replaces) a factory under the given type name.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Build constructs the action declared by cfg.
func (r *Registry) Build(
	cfg definition.ActionConfig,
	deps Deps,
) (Action, error) {
	factory, ok := r.factories[cfg.Type()]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", cfg.Type())
	}

	return factory(cfg, deps)
}

// Types lists the registered action type names, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
