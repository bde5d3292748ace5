package cmd

import (
	"fmt"
	"os"

	"github.com/jmehdipour/contact-desk/cmd/worker"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "contact-desk",
	Short:         "Contact form intake service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "path to dotenv file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}
