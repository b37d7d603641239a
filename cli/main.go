// Package main provides the operator console for the test harness: an
// interactive chat over the WebSocket channel and commands for the stored
// test sessions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "harness-cli",
		Short: "Operator console for the legal assistant test harness",
		Long: `harness-cli talks to a running harness server.

  harness-cli chat          Describe what to test and watch the run live
  harness-cli sessions ...  Browse, search and delete stored test sessions`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(chatCmd(), sessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
