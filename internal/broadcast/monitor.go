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

package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/retr0h/fsmd/internal/bus"
)

// Monitor output formats.
const (
	FormatJSON    = "json"
	FormatHuman   = "human"
	FormatCompact = "compact"
)

// MonitorOptions shape and filter the rendered stream.
type MonitorOptions struct {
	// Format is one of json, human, or compact. Empty means json.
	Format string
	// Machine restricts output to one machine's frames. Frames carrying no
	// machine name (initial snapshots) always pass.
	Machine string
}

// Monitor connects to a broadcaster and writes each received frame, one per
// line, until the context is cancelled or the connection drops.
func Monitor(
	ctx context.Context,
	url string,
	out io.Writer,
	opts MonitorOptions,
) error {
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	switch opts.Format {
	case FormatJSON, FormatHuman, FormatCompact:
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		renderFrame(out, data, opts)
	}
}

// renderFrame writes one received frame in the selected format, applying the
// machine filter. Undecodable payloads pass through verbatim only in json
// mode.
func renderFrame(
	out io.Writer,
	data []byte,
	opts MonitorOptions,
) {
	var frame bus.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		if opts.Format == FormatJSON {
			fmt.Fprintln(out, string(data))
		}
		return
	}

	if opts.Machine != "" &&
		frame.MachineName != "" &&
		frame.MachineName != opts.Machine {
		return
	}

	switch opts.Format {
	case FormatCompact:
		fmt.Fprintf(out, "%s %s\n", frame.Type, frame.MachineName)
	case FormatHuman:
		ts := time.Unix(int64(frame.Timestamp), 0).Format("15:04:05")
		payload, _ := json.Marshal(frame.Payload)
		fmt.Fprintf(
			out,
			"%s %-13s %-16s %s\n",
			ts,
			frame.Type,
			frame.MachineName,
			string(payload),
		)
	default:
		fmt.Fprintln(out, string(data))
	}
}
