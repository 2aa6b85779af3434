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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/cli"
)

// eventsSendCmd represents the eventsSend command.
var eventsSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an event to a machine",
	Long: `Appends an event to a machine's mailbox and nudges it over the
datagram fabric.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		target, _ := cmd.Flags().GetString("target")
		eventType, _ := cmd.Flags().GetString("type")
		rawPayload, _ := cmd.Flags().GetString("payload")
		jobID, _ := cmd.Flags().GetString("job-id")

		payload, err := parseJSONMap(rawPayload)
		if err != nil {
			cli.LogFatal(logger, "failed to parse payload", err)
		}

		st := openStore()
		defer func() { _ = st.Close() }()

		id, err := st.SendEvent(target, "cli", eventType, jobID, payload)
		if err != nil {
			cli.LogFatal(logger, "failed to send event", err)
		}

		sender := bus.NewSender(
			logger,
			bus.MachineSocket(appConfig.Bus.SocketDir, appConfig.Bus.Prefix, target),
		)
		sender.Send(bus.EventFrame{
			Type:    eventType,
			Source:  "cli",
			JobID:   jobID,
			Payload: payload,
		})

		logger.Info("event sent",
			slog.String("event_id", id),
			slog.String("target", target),
			slog.String("type", eventType),
		)
	},
}

func init() {
	eventsCmd.AddCommand(eventsSendCmd)

	eventsSendCmd.PersistentFlags().
		StringP("target", "t", "", "Target machine name")
	eventsSendCmd.PersistentFlags().
		StringP("type", "e", "", "Event type")
	eventsSendCmd.PersistentFlags().
		StringP("payload", "", "", "JSON object with the event payload")
	eventsSendCmd.PersistentFlags().
		StringP("job-id", "", "", "Related job id")

	_ = eventsSendCmd.MarkPersistentFlagRequired("target")
	_ = eventsSendCmd.MarkPersistentFlagRequired("type")
}
