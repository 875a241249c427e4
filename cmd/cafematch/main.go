package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cafematch/internal/config"
)

var flagEnv string

var rootCmd = &cobra.Command{
	Use:   "cafematch",
	Short: "Café search and ranking engine",
	Long: `cafematch ranks cafés from a fixed catalog against free-text queries and
the user's preferences.

Configuration is read from config/<env>.yaml. The environment defaults to the
ENV variable, or "local" when it is unset.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "config environment (local, dev, prod); defaults to $ENV")
}

func environment() string {
	if flagEnv != "" {
		return flagEnv
	}
	return config.GetEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
