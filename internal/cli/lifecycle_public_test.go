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

package cli_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/fsmd/internal/cli"
)

type fakeLifecycle struct {
	started bool
	stopped bool
}

func (f *fakeLifecycle) Start()                 { f.started = true }
func (f *fakeLifecycle) Stop(_ context.Context) { f.stopped = true }

type LifecyclePublicTestSuite struct {
	suite.Suite
}

func (s *LifecyclePublicTestSuite) TestRunServer() {
	server := &fakeLifecycle{}
	cleanupRan := false

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cli.RunServer(ctx, server, func() { cleanupRan = true })
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("RunServer did not return after cancellation")
	}

	s.True(server.stopped)
	s.True(cleanupRan)
}

func TestLifecyclePublicTestSuite(t *testing.T) {
	suite.Run(t, new(LifecyclePublicTestSuite))
}
