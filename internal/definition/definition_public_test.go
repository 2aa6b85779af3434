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

package definition_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/fsmd/internal/definition"
)

const workerYAML = `
name: simple_worker
initial_state: waiting
metadata:
  machine_name: worker_1
states: [waiting, processing, completed]
events: [new_job, no_jobs, job_done, continue]
transitions:
  - from: waiting
    to: processing
    event: new_job
  - from: processing
    to: completed
    event: job_done
  - from: completed
    to: waiting
    event: continue
  - from: "*"
    to: waiting
    event: timeout(30)
actions:
  waiting:
    - type: check_database_queue
      job_type: render
      success: new_job
      no_jobs: no_jobs
  processing:
    - type: bash
      command: "echo {job_id}"
      timeout: 10
      success: job_done
`

type DefinitionPublicTestSuite struct {
	suite.Suite

	appFs afero.Fs
}

func (s *DefinitionPublicTestSuite) SetupTest() {
	s.appFs = afero.NewMemMapFs()
}

func (s *DefinitionPublicTestSuite) write(path, content string) {
	s.Require().NoError(afero.WriteFile(s.appFs, path, []byte(content), 0o644))
}

func (s *DefinitionPublicTestSuite) TestLoad() {
	s.write("worker.yaml", workerYAML)

	def, err := definition.Load(s.appFs, "worker.yaml")
	s.Require().NoError(err)

	s.Equal("simple_worker", def.Name)
	s.Equal("waiting", def.InitialState)
	s.Equal("worker_1", def.MachineName(""))
	s.Equal("override", def.MachineName("override"))
	s.Len(def.Transitions, 4)

	actions := def.StateActions("waiting")
	s.Require().Len(actions, 1)
	s.Equal("check_database_queue", actions[0].Type())
	s.Equal("render", actions[0].GetString("job_type"))
	s.Equal("new_job", actions[0].GetString("success"))

	bash := def.StateActions("processing")[0]
	s.Equal(10, bash.GetInt("timeout"))
}

func (s *DefinitionPublicTestSuite) TestLoadErrors() {
	tests := []struct {
		name        string
		yaml        string
		errContains string
	}{
		{
			name:        "when file missing",
			yaml:        "",
			errContains: "failed to read",
		},
		{
			name: "when unknown source state",
			yaml: `
name: bad
initial_state: a
states: [a]
events: [go]
transitions:
  - {from: b, to: a, event: go}
`,
			errContains: "unknown source state",
		},
		{
			name: "when undeclared event",
			yaml: `
name: bad
initial_state: a
states: [a, b]
events: [go]
transitions:
  - {from: a, to: b, event: nope}
`,
			errContains: "undeclared event",
		},
		{
			name: "when initial state unknown",
			yaml: `
name: bad
initial_state: z
states: [a]
events: []
`,
			errContains: "initial_state",
		},
		{
			name: "when actions declared under the wildcard source",
			yaml: `
name: bad
initial_state: a
states: [a]
events: [go]
transitions:
  - {from: a, to: a, event: go}
actions:
  "*":
    - type: log
      message: everywhere
`,
			errContains: `unknown state "*"`,
		},
		{
			name: "when action missing type",
			yaml: `
name: bad
initial_state: a
states: [a]
events: [go]
transitions:
  - {from: a, to: a, event: go}
actions:
  a:
    - message: hello
`,
			errContains: "missing type",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			path := "bad.yaml"
			if tt.yaml != "" {
				s.write(path, tt.yaml)
			} else {
				path = "missing.yaml"
			}

			_, err := definition.Load(s.appFs, path)
			s.Require().Error(err)
			s.Contains(err.Error(), tt.errContains)
		})
	}
}

func (s *DefinitionPublicTestSuite) TestParseTimeout() {
	n, ok := definition.ParseTimeout("timeout(10)")
	s.True(ok)
	s.Equal(10, n)

	_, ok = definition.ParseTimeout("new_job")
	s.False(ok)

	_, ok = definition.ParseTimeout("timeout(x)")
	s.False(ok)
}

func (s *DefinitionPublicTestSuite) TestCandidateTransitions() {
	s.write("worker.yaml", workerYAML)
	def, err := definition.Load(s.appFs, "worker.yaml")
	s.Require().NoError(err)

	candidates := def.CandidateTransitions("waiting")
	s.Require().Len(candidates, 2)
	s.Equal("new_job", candidates[0].Event)
	// Wildcard sources evaluate last.
	s.Equal(definition.WildcardSource, candidates[1].From)
}

func TestDefinitionPublicTestSuite(t *testing.T) {
	suite.Run(t, new(DefinitionPublicTestSuite))
}
