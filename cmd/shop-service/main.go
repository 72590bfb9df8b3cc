package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shop-service",
		Short:         "Orders, payments and payment gateway reconciliation for the shop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file; environment variables take precedence")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

func newLogger() *log.Logger {
	return log.New(os.Stdout, "[shop-service] ", log.LstdFlags|log.Lmicroseconds)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
