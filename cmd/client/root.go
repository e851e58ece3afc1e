// Command line client of Wishful.

package main

import (
	"Wishful/pkg/log"
	"os"

	"github.com/spf13/cobra"
)

const (
	FlagServerUrl = "server"
	FlagToken     = "token"
	FlagUsername  = "username"
	FlagPassword  = "password"
)

// Logger of the client, written to stderr so stdout stays for command output.
var logger log.Logger = log.NewWithWriter("client", os.Stderr)

// rootCmd is a base command.
var rootCmd = &cobra.Command{
	Use:   "wishful",
	Short: "Wishful command line client",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
