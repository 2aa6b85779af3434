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
	"github.com/retr0h/fsmd/internal/diagram"
)

// diagramsCmd represents the diagrams command.
var diagramsCmd = &cobra.Command{
	Use:   "diagrams",
	Short: "Start the diagram provider",
	Long: `Start the HTTP server that serves pre-generated state diagrams
and their metadata to the UI.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		server := diagram.New(appConfig, logger, appFs)

		server.Start()
		cli.RunServer(ctx, server)
	},
}

func init() {
	rootCmd.AddCommand(diagramsCmd)
}
