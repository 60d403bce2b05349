package main

import (
	"fmt"
	"os"

	"github.com/alimikegami/digital-store/settlement-service/internal/app"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	app.InitLogger()

	rootCmd := &cobra.Command{
		Use:          "settlectl",
		Short:        "settlectl - operator tooling for the settlement service",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(walletCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
