package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skimzy/skimzy/internal/cli"
	"github.com/skimzy/skimzy/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "skimzy",
		Short: "Skimzy CLI - turn articles and PDFs into study material",
		Long: `Skimzy CLI sends web pages and PDFs to a skimzy server, which returns a
summary, flashcards and multiple-choice questions, and answers questions
about each document.

Environment variables:
  SKIMZY_API_KEY   API key for authentication
  SKIMZY_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.LibraryCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.HistoryCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
