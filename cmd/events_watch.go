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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/retr0h/fsmd/internal/broadcast"
	"github.com/retr0h/fsmd/internal/cli"
)

// eventsWatchCmd represents the eventsWatch command.
var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream frames from the broadcaster",
	Long: `Connects to the broadcaster and prints every frame, one per line,
until interrupted or the duration elapses.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			url = fmt.Sprintf("ws://localhost:%d/ws/events", appConfig.Broadcaster.Port)
		}

		if duration, _ := cmd.Flags().GetInt("duration"); duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(
				ctx,
				time.Duration(duration)*time.Second,
			)
			defer cancel()
		}

		format, _ := cmd.Flags().GetString("format")
		machine, _ := cmd.Flags().GetString("machine")

		err := broadcast.Monitor(ctx, url, os.Stdout, broadcast.MonitorOptions{
			Format:  format,
			Machine: machine,
		})
		if err != nil {
			cli.LogFatal(logger, "stream failed", err, "url", url)
		}
	},
}

func init() {
	eventsCmd.AddCommand(eventsWatchCmd)

	eventsWatchCmd.PersistentFlags().
		StringP("url", "u", "", "Broadcaster WebSocket URL (defaults to the configured port)")
	eventsWatchCmd.PersistentFlags().
		String("format", broadcast.FormatHuman, "Output format (human|json|compact)")
	eventsWatchCmd.PersistentFlags().
		StringP("machine", "m", "", "Only show frames from this machine")
	eventsWatchCmd.PersistentFlags().
		Int("duration", 0, "Stop after this many seconds (0 streams forever)")
}
