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
	"github.com/spf13/cobra"

	"github.com/retr0h/fsmd/internal/cli"
	"github.com/retr0h/fsmd/internal/store"
)

// jobListCmd represents the jobList command.
var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs in the queue",
	Long: `Lists jobs with their status and dispatch order.

Filtering options:
  --status: Show only jobs with a specific status (pending, processing, completed, failed)
`,
	Run: func(cmd *cobra.Command, _ []string) {
		status, _ := cmd.Flags().GetString("status")

		st := openStore()
		defer func() { _ = st.Close() }()

		jobs, err := st.ListJobs(store.Status(status))
		if err != nil {
			cli.LogFatal(logger, "failed to list jobs", err)
		}

		if jsonOutput {
			printJSON(jobs)
			return
		}

		rows := make([][]string, 0, len(jobs))
		for _, job := range jobs {
			rows = append(rows, []string{
				job.ID,
				job.Type,
				string(job.Status),
				formatTime(job.CreatedAt),
			})
		}
		cli.PrintTable([]string{"ID", "TYPE", "STATUS", "CREATED"}, rows)
	},
}

func init() {
	jobCmd.AddCommand(jobListCmd)

	jobListCmd.PersistentFlags().
		StringP("status", "s", "", "Filter jobs by status")
}
