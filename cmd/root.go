package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "payment-orchestrator",
	Short: "Multi-tenant payment orchestrator",
	Long:  "Routes idempotent payment requests from many tenants to their configured gateways and keeps an audit trail of every provider call.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
