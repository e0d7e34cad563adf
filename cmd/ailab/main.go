// Command ailab drives the AI Lab session core from a terminal: it logs in
// and out, reports where the app would start, and calls the REST API through
// the authenticated pipeline.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   "ailab",
	Short: "AI Lab session client",
	Long: `Command line client for the AI Lab REST API.

Examples:
  ailab register --email ada@lab.example.com --password Analytical1 --first-name Ada --last-name Lovelace
  ailab login --email ada@lab.example.com --password Analytical1 --remember
  ailab status
  ailab get /api/projects
  ailab watch`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./ailab.yaml or $HOME/.ailab/ailab.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
