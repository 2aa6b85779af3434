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
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Discover scans dir for executable files and registers each one as a
// script-backed action type named after the file (extension stripped). A
// missing or empty directory registers nothing.
func (r *Registry) Discover(
	appFs afero.Fs,
	logger *slog.Logger,
	dir string,
) error {
	if dir == "" {
		return nil
	}

	exists, err := afero.DirExists(appFs, dir)
	if err != nil {
		return fmt.Errorf("failed to stat actions dir: %w", err)
	}
	if !exists {
		return nil
	}

	entries, err := afero.ReadDir(appFs, dir)
	if err != nil {
		return fmt.Errorf("failed to read actions dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Mode()&0o111 == 0 {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		script := filepath.Join(dir, entry.Name())

		r.Register(name, newScriptFactory(script))
		logger.Debug(
			"registered user action",
			slog.String("type", name),
			slog.String("script", script),
		)
	}

	return nil
}
