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

	"github.com/retr0h/fsmd/internal/cli"
	"github.com/retr0h/fsmd/internal/store"
)

// jobUpdateCmd represents the jobUpdate command.
var jobUpdateCmd = &cobra.Command{
	Use:   "update JOB_ID STATUS",
	Short: "Update a job's status",
	Long:  `Sets a job's status (pending, processing, completed, failed).`,
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		st := openStore()
		defer func() { _ = st.Close() }()

		if err := st.UpdateJobStatus(args[0], store.Status(args[1])); err != nil {
			cli.LogFatal(logger, "failed to update job", err)
		}

		logger.Info("job updated",
			slog.String("job_id", args[0]),
			slog.String("status", args[1]),
		)
	},
}

func init() {
	jobCmd.AddCommand(jobUpdateCmd)
}
