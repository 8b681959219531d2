package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/xtg/pdo/internal/backend/mysql"
	_ "github.com/xtg/pdo/internal/backend/postgres"
	"github.com/xtg/pdo/internal/build"
	"github.com/xtg/pdo/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pdo",
		Short:         "Run statements against MySQL or PostgreSQL through one API",
		Version:       build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newDriversCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newQuoteCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
