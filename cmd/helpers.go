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

package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/cli"
	"github.com/retr0h/fsmd/internal/store"
)

// openStore opens the shared store with realtime frames wired onto the
// datagram fabric.
func openStore() *store.Store {
	emitter := bus.NewSender(
		logger,
		bus.EventsSocket(appConfig.Bus.SocketDir, appConfig.Bus.Prefix),
	)

	st, err := store.New(
		logger,
		appConfig.Store.Path,
		store.WithEmitter(emitter),
		store.WithRealtimeRing(appConfig.Store.RealtimeRing),
	)
	if err != nil {
		cli.LogFatal(logger, "failed to open store", err, "path", appConfig.Store.Path)
	}

	return st
}

// parseJSONMap decodes a JSON object passed on the command line.
func parseJSONMap(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return out, nil
}

// printJSON renders v for --json consumers.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		cli.LogFatal(logger, "failed to marshal output", err)
	}
	fmt.Println(string(data))
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
