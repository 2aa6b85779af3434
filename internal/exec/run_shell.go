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

// Package exec runs external commands on behalf of actions.
package exec

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// killGracePeriod between SIGTERM and SIGKILL when a command times out.
const killGracePeriod = 5 * time.Second

// Exec runs shell commands with bounded lifetimes.
type Exec struct {
	logger *slog.Logger
}

// New creates a new Exec instance.
func New(
	logger *slog.Logger,
) *Exec {
	return &Exec{logger: logger}
}

// CmdResult holds the outcome of a command run.
type CmdResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	DurationMs int64
	TimedOut   bool
}

// RunShell executes the command through `bash -c` with the provided extra
// environment and a timeout in seconds. A timeout of 0 defaults to 30
// seconds. The command runs in its own process group; on timeout the whole
// group gets SIGTERM, then SIGKILL after a grace period, so no descendants
// survive.
func (e *Exec) RunShell(
	ctx context.Context,
	command string,
	env []string,
	timeout int,
) (*CmdResult, error) {
	if timeout <= 0 {
		timeout = 30
	}

	cmd := exec.Command("bash", "-c", command)
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(time.Duration(timeout) * time.Second)
	defer timer.Stop()

	var waitErr error
	timedOut := false

	select {
	case waitErr = <-done:
	case <-ctx.Done():
		timedOut = true
		e.killGroup(cmd, done)
	case <-timer.C:
		timedOut = true
		e.killGroup(cmd, done)
	}

	result := &CmdResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: time.Since(start).Milliseconds(),
		TimedOut:   timedOut,
	}

	if timedOut {
		result.ExitCode = -1
	} else if exitErr, ok := waitErr.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	} else if waitErr != nil {
		return result, waitErr
	}

	e.logger.Debug(
		"exec shell",
		slog.String("command", truncate(command, 120)),
		slog.Int("exit_code", result.ExitCode),
		slog.Int64("duration_ms", result.DurationMs),
		slog.Bool("timed_out", result.TimedOut),
	)

	return result, nil
}

// killGroup terminates the command's process group: SIGTERM first, SIGKILL
// after the grace period, then reaps the process.
func (e *Exec) killGroup(
	cmd *exec.Cmd,
	done <-chan error,
) {
	pgid := -cmd.Process.Pid
	_ = syscall.Kill(pgid, syscall.SIGTERM)

	select {
	case <-done:
		return
	case <-time.After(killGracePeriod):
	}

	_ = syscall.Kill(pgid, syscall.SIGKILL)
	<-done
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
