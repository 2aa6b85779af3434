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

	"github.com/spf13/cobra"

	"github.com/retr0h/fsmd/internal/cli"
)

// jobGetCmd represents the jobGet command.
var jobGetCmd = &cobra.Command{
	Use:   "get JOB_ID",
	Short: "Show one job",
	Long:  `Shows a single job with its payload.`,
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		st := openStore()
		defer func() { _ = st.Close() }()

		job, err := st.GetJob(args[0])
		if err != nil {
			cli.LogFatal(logger, "failed to get job", err)
		}
		if job == nil {
			cli.LogFatal(logger, "job not found", fmt.Errorf("no job with id %s", args[0]))
		}

		if jsonOutput {
			printJSON(job)
			return
		}

		fmt.Println()
		cli.PrintKV("Job ID", job.ID, "Type", job.Type)
		cli.PrintKV("Status", string(job.Status), "Priority", fmt.Sprintf("%d", job.Priority))
		if job.AssignedMachine != "" {
			cli.PrintKV("Assigned", job.AssignedMachine)
		}
		if job.SourceJobID != "" {
			cli.PrintKV("Source Job", job.SourceJobID)
		}
		cli.PrintKV("Created", formatTime(job.CreatedAt), "Updated", formatTime(job.UpdatedAt))

		for key, value := range job.Data {
			cli.PrintKV("data."+key, fmt.Sprintf("%v", value))
		}
	},
}

func init() {
	jobCmd.AddCommand(jobGetCmd)
}
