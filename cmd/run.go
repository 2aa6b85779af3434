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

	"github.com/retr0h/fsmd/internal/action"
	"github.com/retr0h/fsmd/internal/bus"
	"github.com/retr0h/fsmd/internal/cli"
	"github.com/retr0h/fsmd/internal/definition"
	"github.com/retr0h/fsmd/internal/engine"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run YAML_PATH",
	Short: "Run a machine",
	Long: `Run one state machine from its YAML definition until it reaches a
terminal state or receives an interrupt.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		machineName, _ := cmd.Flags().GetString("machine-name")
		rawContext, _ := cmd.Flags().GetString("initial-context")

		initialContext, err := parseJSONMap(rawContext)
		if err != nil {
			cli.LogFatal(logger, "failed to parse initial context", err)
		}

		def, err := definition.Load(appFs, args[0])
		if err != nil {
			cli.LogFatal(logger, "failed to load machine definition", err)
		}

		st := openStore()
		defer func() { _ = st.Close() }()

		registry := action.NewRegistry()
		if err := registry.Discover(appFs, logger, appConfig.Actions.Dir); err != nil {
			cli.LogFatal(logger, "failed to discover user actions", err)
		}

		emitter := bus.NewSender(
			logger,
			bus.EventsSocket(appConfig.Bus.SocketDir, appConfig.Bus.Prefix),
		)

		eng, err := engine.New(
			logger,
			def,
			st,
			registry,
			engine.WithMachineName(machineName),
			engine.WithInitialContext(initialContext),
			engine.WithSocket(appConfig.Bus.SocketDir, appConfig.Bus.Prefix),
			engine.WithEmitter(emitter),
		)
		if err != nil {
			cli.LogFatal(logger, "failed to build machine", err)
		}

		if err := eng.Run(ctx); err != nil {
			cli.LogFatal(logger, "machine failed", err,
				"machine", eng.MachineName(),
			)
		}

		logger.Info(
			"machine exited",
			slog.String("machine", eng.MachineName()),
			slog.String("state", eng.State()),
		)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.PersistentFlags().
		StringP("machine-name", "", "", "Override the machine name from the definition")
	runCmd.PersistentFlags().
		StringP("initial-context", "", "", "JSON object seeding the execution context")
}
