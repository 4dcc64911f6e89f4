package main

import (
	"fmt"
	"os"

	"github.com/benvon/time-import/cmd/importctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "importctl",
		Short:        "Run time-record imports from the command line",
		Long:         "CLI tool for building draft import batches from local files and managing import settings",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(commands.NewRunCmd())
	rootCmd.AddCommand(commands.NewDetectCmd())
	rootCmd.AddCommand(commands.NewStoreCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewJWKSCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
