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

package definition

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/retr0h/fsmd/internal/validation"
)

// Load reads a machine definition from the YAML file at path and validates
// it. Validation failures are configuration errors; callers exit rather
// than retry.
func Load(
	appFs afero.Fs,
	path string,
) (*Definition, error) {
	data, err := afero.ReadFile(appFs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse machine definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine definition %s: %w", path, err)
	}

	return &def, nil
}

// Validate checks the structural invariants: the state graph is closed over
// the declared states, every transition event is declared (or a timeout
// form), and every action has a registered type key.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if msg, ok := validation.Var(d.Name, "machine_name"); !ok {
		return fmt.Errorf("invalid name: %s", msg)
	}
	if len(d.States) == 0 {
		return fmt.Errorf("at least one state is required")
	}

	states := make(map[string]bool, len(d.States))
	for _, state := range d.States {
		if states[state] {
			return fmt.Errorf("duplicate state %q", state)
		}
		states[state] = true
	}

	if d.InitialState == "" {
		return fmt.Errorf("initial_state is required")
	}
	if !states[d.InitialState] {
		return fmt.Errorf("initial_state %q is not a declared state", d.InitialState)
	}

	events := make(map[string]bool, len(d.Events))
	for _, event := range d.Events {
		events[event] = true
	}

	for i, t := range d.Transitions {
		if t.From != WildcardSource && !states[t.From] {
			return fmt.Errorf("transition %d: unknown source state %q", i, t.From)
		}
		if !states[t.To] {
			return fmt.Errorf("transition %d: unknown destination state %q", i, t.To)
		}
		if _, isTimeout := ParseTimeout(t.Event); !isTimeout && !events[t.Event] {
			return fmt.Errorf("transition %d: undeclared event %q", i, t.Event)
		}
		for j, a := range t.Actions {
			if a.Type() == "" {
				return fmt.Errorf("transition %d action %d: missing type", i, j)
			}
		}
	}

	// The wildcard form is a transition source only; an action list needs a
	// declared state to run in.
	for state, actions := range d.Actions {
		if !states[state] {
			return fmt.Errorf("actions declared for unknown state %q", state)
		}
		for j, a := range actions {
			if a.Type() == "" {
				return fmt.Errorf("state %s action %d: missing type", state, j)
			}
		}
	}

	return nil
}
