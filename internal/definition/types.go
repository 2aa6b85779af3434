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

// Package definition loads and validates YAML machine definitions.
package definition

import (
	"regexp"
	"strconv"
)

// WildcardSource matches any current state; wildcard transitions are
// evaluated after declared sources.
const WildcardSource = "*"

var timeoutRe = regexp.MustCompile(`^timeout\((\d+)\)$`)

// Definition is one machine's immutable configuration, loaded from YAML.
type Definition struct {
	// Name is the config type; multiple machines may share one definition.
	Name string `yaml:"name"`
	// InitialState the machine starts in.
	InitialState string `yaml:"initial_state"`
	// Metadata carries optional overrides.
	Metadata Metadata `yaml:"metadata"`
	// States is the ordered set of state names.
	States []string `yaml:"states"`
	// Events is the set of transition trigger names.
	Events []string `yaml:"events"`
	// Transitions declared in evaluation order.
	Transitions []Transition `yaml:"transitions"`
	// Actions per state, run while the machine is in that state.
	Actions map[string][]ActionConfig `yaml:"actions"`
}

// Metadata are optional definition-level overrides.
type Metadata struct {
	// MachineName overrides the runtime machine name.
	MachineName string `yaml:"machine_name"`
}

// Transition is one edge of the state graph.
type Transition struct {
	// From is a state name or the wildcard "*".
	From string `yaml:"from"`
	// To is the destination state.
	To string `yaml:"to"`
	// Event that fires this transition, or the special "timeout(N)" form.
	Event string `yaml:"event"`
	// Actions optionally override the From state's action list for this
	// transition only.
	Actions []ActionConfig `yaml:"actions"`
}

// ActionConfig is one action declaration: a "type" key selecting the
// factory plus factory-specific keys, interpolated before execution.
type ActionConfig map[string]any

// Type returns the action's registered type name.
func (c ActionConfig) Type() string {
	t, _ := c["type"].(string)
	return t
}

// GetString returns the config value for key when it is a string.
func (c ActionConfig) GetString(key string) string {
	v, _ := c[key].(string)
	return v
}

// GetStringOr returns the string at key, or fallback when absent or empty.
func (c ActionConfig) GetStringOr(key, fallback string) string {
	if v := c.GetString(key); v != "" {
		return v
	}
	return fallback
}

// GetInt returns the config value for key coerced to int.
func (c ActionConfig) GetInt(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// GetStrings returns the config value for key as a string slice.
func (c ActionConfig) GetStrings(key string) []string {
	items, ok := c[key].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetBool returns the config value for key as a bool, defaulting to
// fallback when absent.
func (c ActionConfig) GetBool(key string, fallback bool) bool {
	v, ok := c[key].(bool)
	if !ok {
		return fallback
	}
	return v
}

// ParseTimeout recognizes the "timeout(N)" event form and returns N in
// seconds.
func ParseTimeout(event string) (int, bool) {
	m := timeoutRe.FindStringSubmatch(event)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// MachineName resolves the runtime machine name: explicit override wins,
// then the metadata override, then the config name itself.
func (d *Definition) MachineName(override string) string {
	if override != "" {
		return override
	}
	if d.Metadata.MachineName != "" {
		return d.Metadata.MachineName
	}
	return d.Name
}

// StateActions returns the action list declared for a state.
func (d *Definition) StateActions(state string) []ActionConfig {
	return d.Actions[state]
}

/// CandidateTransitions returns the transitions eligible in the given state:
// declared sources first in declaration order, wildcard sources after.
func (d *Definition) CandidateTransitions(state string) []Transition {
	var declared, wild []Transition
	for _, t := range d.Transitions {
		switch t.From {
		case state:
			declared = append(declared, t)
		case WildcardSource:
			wild = append(wild, t)
		}
	}
	return append(declared, wild...)
}
