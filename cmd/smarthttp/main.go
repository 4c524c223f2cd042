package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smarthttp",
		Short: "Talk to git smart-HTTP remotes at the transport level",
		Long: `smarthttp drives the git smart HTTP protocol one stream at a time:
ref discovery with GET and pack exchange with POST, without any of the
protocol parsing layered on top. Useful for probing remotes and for
debugging servers that speak the smart protocol.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(
		newRefsCommand(),
		newSendCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
