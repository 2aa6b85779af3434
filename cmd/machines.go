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

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"

	"github.com/retr0h/fsmd/internal/cli"
)

// machinesCmd represents the machines command.
var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List running machines",
	Long: `Lists every registered machine with its current state and whether
its process is still alive. A dead PID with a row still present means the
machine crashed without deregistering.
`,
	Run: func(_ *cobra.Command, _ []string) {
		st := openStore()
		defer func() { _ = st.Close() }()

		states, err := st.ListMachineStates()
		if err != nil {
			cli.LogFatal(logger, "failed to list machines", err)
		}

		if jsonOutput {
			printJSON(states)
			return
		}

		rows := make([][]string, 0, len(states))
		for _, state := range states {
			alive, err := process.PidExists(int32(state.PID))
			status := "alive"
			if err != nil || !alive {
				status = "dead"
			}

			rows = append(rows, []string{
				state.MachineName,
				state.ConfigType,
				state.CurrentState,
				fmt.Sprintf("%d", state.PID),
				status,
				formatTime(state.LastActivity),
			})
		}
		cli.PrintTable(
			[]string{"NAME", "TYPE", "STATE", "PID", "PROCESS", "LAST ACTIVITY"},
			rows,
		)
	},
}

func init() {
	rootCmd.AddCommand(machinesCmd)
}
