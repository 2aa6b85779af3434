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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/retr0h/fsmd/internal/cli"
	"github.com/retr0h/fsmd/internal/store"
)

// jobAddCmd represents the jobAdd command.
var jobAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a job to the queue",
	Long:  `Adds a pending job to the queue for a machine to claim.`,
	Run: func(cmd *cobra.Command, _ []string) {
		jobType, _ := cmd.Flags().GetString("type")
		rawData, _ := cmd.Flags().GetString("data")
		priority, _ := cmd.Flags().GetInt("priority")
		machine, _ := cmd.Flags().GetString("machine")

		data, err := parseJSONMap(rawData)
		if err != nil {
			cli.LogFatal(logger, "failed to parse job data", err)
		}

		st := openStore()
		defer func() { _ = st.Close() }()

		id, err := st.CreateJob(store.CreateJobParams{
			Type:            jobType,
			Priority:        priority,
			AssignedMachine: machine,
			Data:            data,
		})
		if err != nil {
			cli.LogFatal(logger, "failed to create job", err)
		}

		if jsonOutput {
			printJSON(map[string]string{"job_id": id})
			return
		}

		fmt.Println()
		cli.PrintKV("Job ID", id, "Type", jobType)

		logger.Info("job created successfully",
			slog.String("job_id", id),
			slog.String("type", jobType),
		)
	},
}

func init() {
	jobCmd.AddCommand(jobAddCmd)

	jobAddCmd.PersistentFlags().
		StringP("type", "t", "", "Job type used for dispatch")
	jobAddCmd.PersistentFlags().
		StringP("data", "", "", "JSON object with the job payload")
	jobAddCmd.PersistentFlags().
		IntP("priority", "p", 0, "Dispatch priority, lower first (default 100)")
	jobAddCmd.PersistentFlags().
		StringP("machine", "m", "", "Pin the job to a specific machine")

	_ = jobAddCmd.MarkPersistentFlagRequired("type")
}
