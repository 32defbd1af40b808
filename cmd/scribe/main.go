package main

import (
	"os"

	"scribe/cmd/scribe/generate"
	"scribe/cmd/scribe/rewrite"
	"scribe/cmd/scribe/runs"
	"scribe/cmd/scribe/validate"
	"scribe/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:   "scribe",
		Short: "Scribe runs content agents over the Dify completion API",
	}

	rootCmd.AddCommand(validate.Cmd)
	rootCmd.AddCommand(generate.Cmd)
	rootCmd.AddCommand(rewrite.Cmd)
	rootCmd.AddCommand(runs.Cmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
