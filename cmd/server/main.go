// Package main is the entry point for the codex server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-codex/cmd/server/client"
)

var rootCmd = &cobra.Command{
	Use:   "rpg-codex",
	Short: "Primal Fear reference database",
	Long: `rpg-codex serves a local reference database of creatures, items, structures,
resources, bosses and progression data. A bundled sample data set is served
whenever the live data source cannot be reached.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(serveDataCmd)
	rootCmd.AddCommand(client.ClientCmd)
}
